package system

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/ecs/component"
)

// AgentState is one behavior of the agent controller. Implementations are
// stateless singletons; per-agent data lives on the Agent.
type AgentState interface {
	Name() component.StateID
	Enter(a *Agent)
	Update(a *Agent, dt float64)
	Exit(a *Agent)
}

// maxChainedTransitions bounds how many deferred transitions one ChangeState
// call may apply.
const maxChainedTransitions = 16

// StateMachine drives one agent through its states. Transitions requested
// from inside an Enter/Exit hook are deferred until the running transition
// completes; the last such request wins.
type StateMachine struct {
	agent    *Agent
	current  AgentState
	previous AgentState

	inTransition bool
	pending      AgentState

	onChange func(from, to AgentState)
	log      *zap.Logger
}

func NewStateMachine(a *Agent, log *zap.Logger) *StateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateMachine{agent: a, log: log}
}

func (m *StateMachine) Current() AgentState { return m.current }
func (m *StateMachine) Previous() AgentState { return m.previous }

// InTransition reports whether an Enter/Exit pair is running.
func (m *StateMachine) InTransition() bool { return m.inTransition }

// OnChange registers a callback fired after every completed transition.
func (m *StateMachine) OnChange(fn func(from, to AgentState)) {
	m.onChange = fn
}

// ChangeState switches to next. Requesting the current state is a no-op.
func (m *StateMachine) ChangeState(next AgentState) {
	if m == nil || next == nil {
		return
	}
	if m.inTransition {
		m.pending = next
		return
	}
	for i := 0; next != nil; i++ {
		if i == maxChainedTransitions {
			m.log.Warn("dropping chained transition",
				zap.String("from", stateName(m.current)),
				zap.String("to", stateName(next)),
			)
			return
		}
		if next != m.current {
			m.transition(next)
		}
		next, m.pending = m.pending, nil
	}
}

// Update forwards to the current state.
func (m *StateMachine) Update(dt float64) {
	if m == nil || m.current == nil {
		return
	}
	state := m.current
	if err := m.guard(func() { state.Update(m.agent, dt) }); err != nil {
		m.log.Error("state update failed", zap.String("state", stateName(state)), zap.Error(err))
	}
}

func (m *StateMachine) transition(next AgentState) {
	from, prev := m.current, m.previous
	m.inTransition = true
	err := m.guard(func() {
		if from != nil {
			from.Exit(m.agent)
		}
		m.previous = from
		m.current = next
		next.Enter(m.agent)
	})
	m.inTransition = false
	if err != nil {
		m.current, m.previous, m.pending = from, prev, nil
		m.log.Error("state transition failed",
			zap.String("from", stateName(from)),
			zap.String("to", stateName(next)),
			zap.Error(err),
		)
		return
	}
	if m.onChange != nil {
		m.onChange(from, next)
	}
}

func (m *StateMachine) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}

func stateName(s AgentState) string {
	if s == nil {
		return ""
	}
	return string(s.Name())
}
