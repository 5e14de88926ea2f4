package system

import (
	"math"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/ecs/component"
)

// ArrivalTolerance is the horizontal distance at which a move counts as
// arrived.
const ArrivalTolerance = 0.5

type MoveStatus int

const (
	MovePending MoveStatus = iota
	MoveArrived
	MoveCancelled
)

func (s MoveStatus) String() string {
	switch s {
	case MoveArrived:
		return "arrived"
	case MoveCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// MovementTask walks a transform along X toward a target at constant speed.
// It is polled once per tick and fires its callback at most once.
type MovementTask struct {
	targetX  float64
	speed    float64
	onArrive func()

	arrived   bool
	cancelled bool
}

func NewMovementTask(targetX, speed float64, onArrive func()) *MovementTask {
	return &MovementTask{targetX: targetX, speed: math.Abs(speed), onArrive: onArrive}
}

func (t *MovementTask) TargetX() float64 { return t.targetX }

// Cancel stops the task; its callback will never run.
func (t *MovementTask) Cancel() {
	if t == nil || t.arrived {
		return
	}
	t.cancelled = true
	t.onArrive = nil
}

// Done reports whether the task arrived or was cancelled.
func (t *MovementTask) Done() bool {
	return t == nil || t.arrived || t.cancelled
}

// Poll advances tr by one tick of dt seconds.
func (t *MovementTask) Poll(tr *component.Transform, dt float64) MoveStatus {
	switch {
	case t == nil || t.cancelled:
		return MoveCancelled
	case t.arrived:
		return MoveArrived
	case tr == nil:
		return MovePending
	}

	if math.Abs(t.targetX-tr.X) < ArrivalTolerance {
		return t.arrive()
	}
	tr.Face(t.targetX - tr.X)
	tr.X = common.MoveTowards(tr.X, t.targetX, t.speed*dt)
	if math.Abs(t.targetX-tr.X) < ArrivalTolerance {
		return t.arrive()
	}
	return MovePending
}

func (t *MovementTask) arrive() MoveStatus {
	t.arrived = true
	cb := t.onArrive
	t.onArrive = nil
	if cb != nil {
		cb()
	}
	return MoveArrived
}
