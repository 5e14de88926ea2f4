package system

import "github.com/milk9111/boxsorter/ecs"

// EventRelaySystem hands the step's events to a sink. Register it last.
type EventRelaySystem struct {
	sink func(ecs.Event)
}

func NewEventRelaySystem(sink func(ecs.Event)) *EventRelaySystem {
	return &EventRelaySystem{sink: sink}
}

func (s *EventRelaySystem) Update(w *ecs.World) {
	if s == nil || s.sink == nil || w == nil {
		return
	}
	for _, ev := range w.Events().Peek() {
		s.sink(ev)
	}
}
