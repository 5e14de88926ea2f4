package system

import (
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// Animation clip names the agent asks its presenter for.
const (
	ClipIdle    = "idle"
	ClipWalk    = "walk"
	ClipCollect = "collect"
)

// Presenter plays a clip on an entity and calls onComplete once it finishes.
// Playing a new clip on the same entity discards the previous callback.
type Presenter interface {
	Play(w *ecs.World, e ecs.Entity, clip string, onComplete func())
}

// Rand is the random source agents sample from. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type AgentConfig struct {
	SearchSpeed   float64
	FoundSpeed    float64
	DepositSpeed  float64
	IdleMin       float64
	IdleMax       float64
	SensingRadius float64
	HalfWidth     float64
	// Grip is the carry point relative to the agent, facing right.
	Grip cp.Vector
}

func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		SearchSpeed:   2,
		FoundSpeed:    3,
		DepositSpeed:  5,
		IdleMin:       1,
		IdleMax:       3,
		SensingRadius: 4,
		HalfWidth:     0.5,
		Grip:          cp.Vector{X: 0.6, Y: 0.3},
	}
}

// PatrolBounds limits where a searching agent may walk.
type PatrolBounds struct {
	MinX float64
	MaxX float64
}

func Unbounded() PatrolBounds {
	return PatrolBounds{MinX: math.Inf(-1), MaxX: math.Inf(1)}
}

func (b PatrolBounds) Clamp(x float64) float64 {
	return common.Clamp(x, b.MinX, b.MaxX)
}

// PatrolBoundsFromZones spans the drop zones inset by the agent's half width so
// patrols stop short of the outermost zones.
func PatrolBoundsFromZones(zoneX []float64, halfWidth float64) PatrolBounds {
	if len(zoneX) == 0 {
		return Unbounded()
	}
	lo, hi := zoneX[0], zoneX[0]
	for _, x := range zoneX[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	halfWidth = math.Abs(halfWidth)
	lo, hi = lo+halfWidth, hi-halfWidth
	if lo > hi {
		mid := (lo + hi) / 2
		lo, hi = mid, mid
	}
	return PatrolBounds{MinX: lo, MaxX: hi}
}

// AgentDeps are the collaborators an agent calls into.
type AgentDeps struct {
	Detector  *Detector
	Presenter Presenter
	Policy    *ZonePolicy
	Rand      Rand
	Log       *zap.Logger
}

// Agent owns the state machine, the held and targeted carryables and the
// movement task of one agent entity.
type Agent struct {
	world  *ecs.World
	entity ecs.Entity
	name   string

	cfg    AgentConfig
	bounds PatrolBounds
	zones  []ecs.Entity

	detector  *Detector
	presenter Presenter
	policy    *ZonePolicy
	rng       Rand
	log       *zap.Logger

	machine *StateMachine

	held   ecs.Entity
	target ecs.Entity
	move   *MovementTask

	idleWait    float64
	idleElapsed float64
	collectSeq  uint64
}

func NewAgent(w *ecs.World, e ecs.Entity, cfg AgentConfig, bounds PatrolBounds, zones []ecs.Entity, deps AgentDeps) *Agent {
	log := common.OrNop(deps.Log)
	name := e.String()
	if tag, ok := ecs.Get(w, e, component.AgentTagComponent.Kind()); ok && tag.Name != "" {
		name = tag.Name
	}
	a := &Agent{
		world:     w,
		entity:    e,
		name:      name,
		cfg:       cfg,
		bounds:    bounds,
		zones:     append([]ecs.Entity(nil), zones...),
		detector:  deps.Detector,
		presenter: deps.Presenter,
		policy:    deps.Policy,
		rng:       deps.Rand,
		log:       log.With(zap.String("agent", name)),
	}
	a.machine = NewStateMachine(a, a.log)
	a.machine.OnChange(a.stateChanged)
	return a
}

// Start enters Idle. It is a no-op once the agent has a state.
func (a *Agent) Start() {
	if a.machine.Current() == nil {
		a.machine.ChangeState(IdleState)
	}
}

func (a *Agent) Entity() ecs.Entity { return a.entity }
func (a *Agent) Name() string { return a.name }
func (a *Agent) Config() AgentConfig { return a.cfg }
func (a *Agent) Bounds() PatrolBounds { return a.bounds }
func (a *Agent) Machine() *StateMachine { return a.machine }
func (a *Agent) Held() ecs.Entity { return a.held }
func (a *Agent) Target() ecs.Entity { return a.target }
func (a *Agent) Zones() []ecs.Entity { return a.zones }
func (a *Agent) SetConfig(cfg AgentConfig) { a.cfg = cfg }
func (a *Agent) ChangeState(next AgentState) { a.machine.ChangeState(next) }

// State returns the current state name, or "" before Start.
func (a *Agent) State() component.StateID {
	if s := a.machine.Current(); s != nil {
		return s.Name()
	}
	return ""
}

// Tick advances movement, then the current state, then carries the held
// object along.
func (a *Agent) Tick(dt float64) {
	if a == nil || !ecs.IsAlive(a.world, a.entity) {
		return
	}
	if task := a.move; task != nil {
		if status := task.Poll(a.transform(), dt); status != MovePending && a.move == task {
			a.move = nil
		}
	}
	a.machine.Update(dt)
	a.syncHeld()
	a.mirrorState()
}

func (a *Agent) transform() *component.Transform {
	t, _ := ecs.Get(a.world, a.entity, component.TransformComponent.Kind())
	return t
}

// Position is the agent's world position.
func (a *Agent) Position() cp.Vector {
	if t := a.transform(); t != nil {
		return cp.Vector{X: t.X, Y: t.Y}
	}
	return cp.Vector{}
}

// StartMovement replaces any running move with a new one toward targetX.
func (a *Agent) StartMovement(targetX, speed float64, onArrive func()) *MovementTask {
	a.StopMovement()
	a.move = NewMovementTask(targetX, speed, onArrive)
	a.play(ClipWalk, nil)
	return a.move
}

func (a *Agent) StopMovement() {
	if a.move != nil {
		a.move.Cancel()
		a.move = nil
	}
}

func (a *Agent) IsMoving() bool {
	return a.move != nil && !a.move.Done()
}

func (a *Agent) play(clip string, onComplete func()) {
	if a.presenter == nil {
		if onComplete != nil {
			onComplete()
		}
		return
	}
	a.presenter.Play(a.world, a.entity, clip, onComplete)
}

func (a *Agent) sampleIdle() float64 {
	lo, hi := a.cfg.IdleMin, a.cfg.IdleMax
	if hi < lo {
		lo, hi = hi, lo
	}
	if a.rng == nil {
		return lo
	}
	return lo + a.rng.Float64()*(hi-lo)
}

func (a *Agent) randomOffset(radius float64) float64 {
	if a.rng == nil {
		return 0
	}
	return (a.rng.Float64()*2 - 1) * radius
}

// setTarget records e as the targeted carryable. The detector has already
// claimed it for this agent.
func (a *Agent) setTarget(e ecs.Entity) {
	if a.target != 0 && a.target != e {
		a.clearTarget()
	}
	a.target = e
}

func (a *Agent) clearTarget() {
	if a.target == 0 {
		return
	}
	if c, ok := ecs.Get(a.world, a.target, component.CarryableComponent.Kind()); ok {
		c.Release(uint64(a.entity))
	}
	a.target = 0
}

// targetValid reports whether the target can still be picked up by this agent.
func (a *Agent) targetValid() bool {
	if a.target == 0 || a.target == a.held {
		return false
	}
	c, ok := ecs.Get(a.world, a.target, component.CarryableComponent.Kind())
	if !ok || c.Held() || c.Stacked() {
		return false
	}
	return c.ClaimedBy == uint64(a.entity)
}

func (a *Agent) targetPosition() (cp.Vector, bool) {
	t, ok := ecs.Get(a.world, a.target, component.TransformComponent.Kind())
	if !ok {
		return cp.Vector{}, false
	}
	return cp.Vector{X: t.X, Y: t.Y}, true
}

func (a *Agent) holding() bool {
	return a.held != 0 && ecs.IsAlive(a.world, a.held)
}

// attach grips the target: it becomes held, its claim is consumed and its
// body leaves the physics space.
func (a *Agent) attach() (ecs.Entity, bool) {
	item := a.target
	c, ok := ecs.Get(a.world, item, component.CarryableComponent.Kind())
	if !ok {
		return 0, false
	}
	c.Holder = uint64(a.entity)
	c.ClaimedBy = 0
	c.Resting = false
	if body, ok := ecs.Get(a.world, item, component.PhysicsBodyComponent.Kind()); ok {
		body.Disabled = true
	}
	a.held = item
	a.target = 0
	a.syncHeld()
	return item, true
}

// GripPoint is the world position of the carry point, mirrored with facing.
func (a *Agent) GripPoint() cp.Vector {
	t := a.transform()
	if t == nil {
		return cp.Vector{}
	}
	return cp.Vector{X: t.X + a.cfg.Grip.X*t.Facing(), Y: t.Y + a.cfg.Grip.Y}
}

func (a *Agent) syncHeld() {
	if !a.holding() {
		return
	}
	t, ok := ecs.Get(a.world, a.held, component.TransformComponent.Kind())
	if !ok {
		return
	}
	grip := a.GripPoint()
	t.X, t.Y = grip.X, grip.Y
	t.Rotation = 0
}

func (a *Agent) mirrorState() {
	st, ok := ecs.Get(a.world, a.entity, component.AIStateComponent.Kind())
	if !ok {
		return
	}
	st.Current = a.State()
	if p := a.machine.Previous(); p != nil {
		st.Previous = p.Name()
	}
	st.Held = uint64(a.held)
	st.Target = uint64(a.target)
}

func (a *Agent) stateChanged(from, to AgentState) {
	ev := StateChangedEvent{
		Agent: a.entity,
		Name:  a.name,
		From:  stateID(from),
		To:    stateID(to),
		Tick:  a.world.Tick(),
	}
	a.log.Debug("agent state changed", zap.String("from", string(ev.From)), zap.String("to", string(ev.To)))
	pushEvent(a.world, EventStateChanged, ev)
	a.mirrorState()
}

func stateID(s AgentState) component.StateID {
	if s == nil {
		return ""
	}
	return s.Name()
}
