package system

import (
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// Agent state singletons (avoid allocations on transitions).
var (
	IdleState    AgentState = &idleState{}
	SearchState  AgentState = &searchState{}
	FoundState   AgentState = &foundState{}
	CollectState AgentState = &collectState{}
	DepositState AgentState = &depositState{}
)

type idleState struct{}

type searchState struct{}

type foundState struct{}

type collectState struct{}

type depositState struct{}

func (idleState) Name() component.StateID { return component.StateIdle }
func (idleState) Enter(a *Agent) {
	a.StopMovement()
	a.idleWait = a.sampleIdle()
	a.idleElapsed = 0
	a.play(ClipIdle, nil)
}
func (idleState) Update(a *Agent, dt float64) {
	a.idleElapsed += dt
	if a.idleElapsed < a.idleWait {
		return
	}
	// Still holding means the last deposit found no zone; try again.
	if a.holding() {
		a.ChangeState(DepositState)
		return
	}
	a.ChangeState(SearchState)
}
func (idleState) Exit(a *Agent) {
	a.idleElapsed = 0
}

func (searchState) Name() component.StateID { return component.StateSearch }
func (searchState) Enter(a *Agent) {
	a.StopMovement()
	a.clearTarget()

	pos := a.Position()
	x := a.bounds.Clamp(pos.X + a.randomOffset(a.cfg.SensingRadius))
	a.StartMovement(x, a.cfg.SearchSpeed, func() {
		a.ChangeState(IdleState)
	})
}
func (searchState) Update(a *Agent, dt float64) {
	if !a.holding() {
		if e, ok := a.detector.Nearest(a.world, a.entity, a.Position(), a.cfg.SensingRadius); ok {
			a.setTarget(e)
			a.ChangeState(FoundState)
			return
		}
	}
	if !a.IsMoving() {
		a.ChangeState(IdleState)
	}
}
func (searchState) Exit(a *Agent) {
	a.StopMovement()
}

func (foundState) Name() component.StateID { return component.StateFound }
func (foundState) Enter(a *Agent) {
	if !a.targetValid() {
		a.clearTarget()
		a.ChangeState(SearchState)
		return
	}
	pos, ok := a.targetPosition()
	if !ok {
		a.clearTarget()
		a.ChangeState(SearchState)
		return
	}
	a.StartMovement(pos.X, a.cfg.FoundSpeed, func() {
		a.ChangeState(CollectState)
	})
}
func (foundState) Update(a *Agent, dt float64) {
	if !a.targetValid() {
		a.log.Debug("target lost", zap.Stringer("target", a.target))
		a.clearTarget()
		a.ChangeState(SearchState)
	}
}
func (foundState) Exit(a *Agent) {
	a.StopMovement()
}

func (collectState) Name() component.StateID { return component.StateCollect }
func (collectState) Enter(a *Agent) {
	if a.target == 0 {
		a.log.Warn("cannot collect: no target")
		a.ChangeState(SearchState)
		return
	}
	if a.holding() {
		a.log.Warn("cannot collect: already holding", zap.Stringer("held", a.held))
		a.clearTarget()
		a.ChangeState(SearchState)
		return
	}
	a.collectSeq++
	seq := a.collectSeq
	a.play(ClipCollect, func() {
		a.finishCollect(seq)
	})
}
func (collectState) Update(a *Agent, dt float64) {}
func (collectState) Exit(a *Agent) {
	// Invalidates a pickup still waiting on its clip.
	a.collectSeq++
	a.clearTarget()
}

func (a *Agent) finishCollect(seq uint64) {
	if seq != a.collectSeq || a.machine.Current() != CollectState {
		return
	}
	if !a.targetValid() {
		a.log.Warn("cannot collect: target no longer available", zap.Stringer("target", a.target))
		a.clearTarget()
		a.ChangeState(SearchState)
		return
	}
	item, ok := a.attach()
	if !ok {
		a.clearTarget()
		a.ChangeState(SearchState)
		return
	}
	ev := CollectedEvent{Agent: a.entity, Name: a.name, Item: item, Tick: a.world.Tick()}
	if c, ok := ecs.Get(a.world, item, component.CarryableComponent.Kind()); ok {
		ev.Kind = c.Kind
	}
	a.log.Debug("collected", zap.Stringer("item", item), zap.String("kind", string(ev.Kind)))
	pushEvent(a.world, EventCollected, ev)
	a.ChangeState(DepositState)
}

func (depositState) Name() component.StateID { return component.StateDeposit }
func (depositState) Enter(a *Agent) {
	if !a.holding() {
		a.log.Warn("cannot deposit: nothing held")
		a.held = 0
		a.ChangeState(IdleState)
		return
	}
	if len(a.zones) == 0 {
		a.log.Error("cannot deposit: no drop zones configured")
		a.ChangeState(IdleState)
		return
	}
	zone, ok := SelectDropZone(a.world, a.zones, a.Position(), a.held, a.policy)
	if !ok {
		kind := ""
		if c, ok := ecs.Get(a.world, a.held, component.CarryableComponent.Kind()); ok {
			kind = string(c.Kind)
		}
		a.log.Warn("no compatible drop zone", zap.Stringer("held", a.held), zap.String("kind", kind))
		a.ChangeState(IdleState)
		return
	}
	anchor, _ := ecs.Get(a.world, zone, component.TransformComponent.Kind())
	a.StartMovement(anchor.X, a.cfg.DepositSpeed, func() {
		a.finishDeposit(zone)
	})
}
func (depositState) Update(a *Agent, dt float64) {}
func (depositState) Exit(a *Agent) {
	a.StopMovement()
}

func (a *Agent) finishDeposit(zone ecs.Entity) {
	item := a.held
	p, ok := DepositInto(a.world, zone, item, a.policy)
	if !ok {
		a.log.Warn("drop zone rejected deposit", zap.Stringer("zone", zone), zap.Stringer("held", item))
		pushEvent(a.world, EventDepositRejected, DepositedEvent{Agent: a.entity, Name: a.name, Zone: zone, Item: item, Tick: a.world.Tick()})
		a.ChangeState(IdleState)
		return
	}
	a.held = 0
	ev := DepositedEvent{
		Agent:      a.entity,
		Name:       a.name,
		Zone:       zone,
		Item:       item,
		StackIndex: p.StackIndex,
		LocalX:     p.LocalX,
		LocalY:     p.LocalY,
		Tick:       a.world.Tick(),
	}
	if c, ok := ecs.Get(a.world, item, component.CarryableComponent.Kind()); ok {
		ev.Kind = c.Kind
	}
	if z, ok := ecs.Get(a.world, zone, component.DropZoneComponent.Kind()); ok {
		ev.ZoneName = z.Name
	}
	a.log.Debug("deposited", zap.Stringer("item", item), zap.String("zone", ev.ZoneName), zap.Int("index", p.StackIndex))
	pushEvent(a.world, EventDeposited, ev)
	a.ChangeState(IdleState)
}
