package system

import "github.com/milk9111/boxsorter/ecs"

// AgentSystem ticks every registered agent in registration order.
type AgentSystem struct {
	agents []*Agent
}

func NewAgentSystem() *AgentSystem {
	return &AgentSystem{}
}

// Add registers a and enters its initial state.
func (s *AgentSystem) Add(a *Agent) {
	if a == nil {
		return
	}
	s.agents = append(s.agents, a)
	a.Start()
}

func (s *AgentSystem) Agents() []*Agent {
	return append([]*Agent(nil), s.agents...)
}

func (s *AgentSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	dt := w.DeltaTime()
	for _, a := range s.agents {
		a.Tick(dt)
	}
}
