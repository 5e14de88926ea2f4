package system

import (
	"iter"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// fixedRand always returns v.
type fixedRand struct{ v float64 }

func (r fixedRand) Float64() float64 { return r.v }

// listQuery yields a fixed set of entities regardless of the circle.
type listQuery struct {
	entities []ecs.Entity
	calls    int
}

func (q *listQuery) Nearby(center cp.Vector, radius float64) iter.Seq[ecs.Entity] {
	q.calls++
	return func(yield func(ecs.Entity) bool) {
		for _, e := range q.entities {
			if !yield(e) {
				return
			}
		}
	}
}

type play struct {
	entity ecs.Entity
	clip   string
}

// manualPresenter records plays and completes them when told to.
type manualPresenter struct {
	plays   []play
	pending map[ecs.Entity]func()
}

func newManualPresenter() *manualPresenter {
	return &manualPresenter{pending: make(map[ecs.Entity]func())}
}

func (p *manualPresenter) Play(w *ecs.World, e ecs.Entity, clip string, onComplete func()) {
	p.plays = append(p.plays, play{entity: e, clip: clip})
	p.pending[e] = onComplete
}

func (p *manualPresenter) finish(e ecs.Entity) {
	cb := p.pending[e]
	delete(p.pending, e)
	if cb != nil {
		cb()
	}
}

func (p *manualPresenter) last() string {
	if len(p.plays) == 0 {
		return ""
	}
	return p.plays[len(p.plays)-1].clip
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func addCarryable(t *testing.T, w *ecs.World, kind component.CarryableKind, x, y float64, resting bool) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1}))
	require.NoError(t, ecs.Add(w, e, component.CarryableComponent.Kind(), &component.Carryable{
		Kind:    kind,
		Width:   1,
		Height:  1,
		Resting: resting,
	}))
	return e
}

func addZone(t *testing.T, w *ecs.World, name string, x, y float64, kinds ...component.CarryableKind) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1}))
	zone := component.NewDropZone(name, kinds...)
	require.NoError(t, ecs.Add(w, e, component.DropZoneComponent.Kind(), &zone))
	return e
}

type agentFixture struct {
	w         *ecs.World
	agent     *Agent
	query     *listQuery
	presenter *manualPresenter
	logs      *observer.ObservedLogs
}

type agentOptions struct {
	x      float64
	rand   float64
	zones  []ecs.Entity
	cfg    *AgentConfig
	policy *ZonePolicy
}

func newAgentFixture(t *testing.T, w *ecs.World, opts agentOptions) *agentFixture {
	t.Helper()
	e := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, e, component.AgentTagComponent.Kind(), &component.AgentTag{Name: "sorter"}))
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: opts.x, Y: 0.8, ScaleX: 1, ScaleY: 1}))
	require.NoError(t, ecs.Add(w, e, component.AIStateComponent.Kind(), &component.AIState{}))

	cfg := DefaultAgentConfig()
	if opts.cfg != nil {
		cfg = *opts.cfg
	}
	log, logs := observedLogger()
	policy := opts.policy
	if policy == nil {
		policy = NewZonePolicy(nil, log)
	}
	f := &agentFixture{
		w:         w,
		query:     &listQuery{},
		presenter: newManualPresenter(),
		logs:      logs,
	}
	f.agent = NewAgent(w, e, cfg, Unbounded(), opts.zones, AgentDeps{
		Detector:  NewDetector(f.query),
		Presenter: f.presenter,
		Policy:    policy,
		Rand:      fixedRand{v: opts.rand},
		Log:       log,
	})
	return f
}

// hold makes the agent grip item as if a pickup had just completed.
func (f *agentFixture) hold(t *testing.T, item ecs.Entity) {
	t.Helper()
	c, ok := ecs.Get(f.w, item, component.CarryableComponent.Kind())
	require.True(t, ok)
	require.True(t, c.TryClaim(uint64(f.agent.Entity())))
	f.agent.setTarget(item)
	_, ok = f.agent.attach()
	require.True(t, ok)
}

// tickUntil ticks the agent until done returns true or limit ticks pass.
func (f *agentFixture) tickUntil(dt float64, limit int, done func() bool) int {
	for i := 1; i <= limit; i++ {
		f.agent.Tick(dt)
		if done() {
			return i
		}
	}
	return -1
}

func messages(logs *observer.ObservedLogs, msg string) int {
	return logs.FilterMessage(msg).Len()
}
