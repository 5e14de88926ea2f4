package system

import (
	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// Event types pushed onto the world queue.
const (
	EventStateChanged    = "agent.state_changed"
	EventCollected       = "agent.collected"
	EventDeposited       = "agent.deposited"
	EventDepositRejected = "agent.deposit_rejected"
	EventSpawned         = "carryable.spawned"
)

type StateChangedEvent struct {
	Agent ecs.Entity
	Name  string
	From  component.StateID
	To    component.StateID
	Tick  uint64
}

type CollectedEvent struct {
	Agent ecs.Entity
	Name  string
	Item  ecs.Entity
	Kind  component.CarryableKind
	Tick  uint64
}

type DepositedEvent struct {
	Agent      ecs.Entity
	Name       string
	Zone       ecs.Entity
	ZoneName   string
	Item       ecs.Entity
	Kind       component.CarryableKind
	StackIndex int
	LocalX     float64
	LocalY     float64
	Tick       uint64
}

type SpawnedEvent struct {
	Item ecs.Entity
	Kind component.CarryableKind
	X    float64
	Y    float64
	Tick uint64
}

func pushEvent(w *ecs.World, typ string, data any) {
	if q := w.Events(); q != nil {
		q.Push(ecs.Event{Type: typ, Data: data})
	}
}
