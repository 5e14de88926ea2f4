package system

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

func TestIdleWaitsSampledDuration(t *testing.T) {
	tests := []struct {
		name  string
		ticks []float64
		want  component.StateID
	}{
		{name: "just short", ticks: []float64{1.0, 0.999}, want: component.StateIdle},
		{name: "exactly elapsed", ticks: []float64{1.0, 0.5, 0.25, 0.25}, want: component.StateSearch},
		{name: "overshoot", ticks: []float64{1.999, 0.5}, want: component.StateSearch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ecs.NewWorld()
			// [1, 3] with a 0.5 draw waits 2.0s.
			f := newAgentFixture(t, w, agentOptions{rand: 0.5})
			f.agent.Start()
			require.Equal(t, component.StateIdle, f.agent.State())
			require.Equal(t, ClipIdle, f.presenter.last())

			for _, dt := range tc.ticks {
				f.agent.Tick(dt)
			}
			require.Equal(t, tc.want, f.agent.State())
		})
	}
}

func TestIdleStateMirroredToComponent(t *testing.T) {
	w := ecs.NewWorld()
	f := newAgentFixture(t, w, agentOptions{rand: 0.5})
	f.agent.Start()
	f.agent.Tick(2)

	st, ok := ecs.Get(w, f.agent.Entity(), component.AIStateComponent.Kind())
	require.True(t, ok)
	require.Equal(t, component.StateSearch, st.Current)
	require.Equal(t, component.StateIdle, st.Previous)
}

func TestSearchFindsRestingCarryable(t *testing.T) {
	w := ecs.NewWorld()
	// A 0.9 draw sends the patrol 3.2 units right, away from the agent's spot.
	f := newAgentFixture(t, w, agentOptions{rand: 0.9})
	item := addCarryable(t, w, "red", 2, 0.5, true)
	f.query.entities = []ecs.Entity{item}

	f.agent.Start()
	f.agent.ChangeState(SearchState)
	require.True(t, f.agent.IsMoving())

	f.agent.Tick(1.0 / 60)

	require.Equal(t, component.StateFound, f.agent.State())
	require.Equal(t, item, f.agent.Target())
	c, _ := ecs.Get(w, item, component.CarryableComponent.Kind())
	require.Equal(t, uint64(f.agent.Entity()), c.ClaimedBy)
}

func TestSearchIgnoresMovingCarryable(t *testing.T) {
	w := ecs.NewWorld()
	f := newAgentFixture(t, w, agentOptions{rand: 0.9})
	item := addCarryable(t, w, "red", 2, 3, false)
	f.query.entities = []ecs.Entity{item}

	f.agent.Start()
	f.agent.ChangeState(SearchState)
	f.agent.Tick(1.0 / 60)

	require.Equal(t, component.StateSearch, f.agent.State())
	require.Zero(t, f.agent.Target())
}

func TestFullPickupAndDeposit(t *testing.T) {
	w := ecs.NewWorld()
	zone := addZone(t, w, "red_bin", 6, 0.5, "red")
	f := newAgentFixture(t, w, agentOptions{rand: 0.9, zones: []ecs.Entity{zone}})
	item := addCarryable(t, w, "red", 2, 0.5, true)
	f.query.entities = []ecs.Entity{item}

	f.agent.Start()
	f.agent.ChangeState(SearchState)
	f.agent.Tick(0.1)
	require.Equal(t, component.StateFound, f.agent.State())

	n := f.tickUntil(0.1, 100, func() bool { return f.agent.State() == component.StateCollect })
	require.Positive(t, n)
	require.Equal(t, ClipCollect, f.presenter.last())
	require.Equal(t, item, f.agent.Target())
	require.Zero(t, f.agent.Held())

	f.presenter.finish(f.agent.Entity())
	require.Equal(t, component.StateDeposit, f.agent.State())
	require.Equal(t, item, f.agent.Held())
	require.Zero(t, f.agent.Target())

	c, _ := ecs.Get(w, item, component.CarryableComponent.Kind())
	require.Equal(t, uint64(f.agent.Entity()), c.Holder)
	require.Zero(t, c.ClaimedBy)

	// The held item rides at the grip point.
	f.agent.Tick(0.1)
	tr, _ := ecs.Get(w, item, component.TransformComponent.Kind())
	grip := f.agent.GripPoint()
	require.Equal(t, grip.X, tr.X)
	require.Equal(t, grip.Y, tr.Y)

	n = f.tickUntil(0.1, 200, func() bool { return f.agent.State() != component.StateDeposit })
	require.Positive(t, n)
	require.Equal(t, component.StateIdle, f.agent.State())
	require.Zero(t, f.agent.Held())

	require.Equal(t, uint64(zone), c.Zone)
	require.False(t, c.Held())
	z, _ := ecs.Get(w, zone, component.DropZoneComponent.Kind())
	require.Equal(t, []uint64{uint64(item)}, z.Stack)

	var types []string
	for _, ev := range w.Events().Peek() {
		types = append(types, ev.Type)
	}
	require.Contains(t, types, EventCollected)
	require.Contains(t, types, EventDeposited)
}

func TestDepositPicksFartherCompatibleZone(t *testing.T) {
	w := ecs.NewWorld()
	near := addZone(t, w, "blue_bin", -3, 0.5, "blue")
	far := addZone(t, w, "red_bin", 8, 0.5, "red")
	f := newAgentFixture(t, w, agentOptions{rand: 0.5, zones: []ecs.Entity{near, far}})
	item := addCarryable(t, w, "red", 1, 0.5, true)

	f.agent.Start()
	f.hold(t, item)
	f.agent.ChangeState(DepositState)

	require.Equal(t, component.StateDeposit, f.agent.State())
	require.True(t, f.agent.IsMoving())
	require.Equal(t, 8.0, f.agent.move.TargetX())

	f.tickUntil(0.1, 200, func() bool { return f.agent.State() != component.StateDeposit })
	c, _ := ecs.Get(w, item, component.CarryableComponent.Kind())
	require.Equal(t, uint64(far), c.Zone)
}

func TestNoCompatibleZoneKeepsItemAndRetries(t *testing.T) {
	w := ecs.NewWorld()
	zone := addZone(t, w, "blue_bin", 4, 0.5, "blue")
	f := newAgentFixture(t, w, agentOptions{rand: 0.5, zones: []ecs.Entity{zone}})
	item := addCarryable(t, w, "red", 1, 0.5, true)

	f.agent.Start()
	f.hold(t, item)
	f.agent.ChangeState(DepositState)

	require.Equal(t, component.StateIdle, f.agent.State())
	require.Equal(t, item, f.agent.Held())
	require.Equal(t, 1, messages(f.logs, "no compatible drop zone"))

	// After the idle wait the agent tries again and lands back in Idle.
	f.agent.Tick(2)
	require.Equal(t, component.StateIdle, f.agent.State())
	require.Equal(t, component.StateDeposit, f.agent.Machine().Previous().Name())
	require.Equal(t, item, f.agent.Held())
	require.Equal(t, 2, messages(f.logs, "no compatible drop zone"))

	z, _ := ecs.Get(w, zone, component.DropZoneComponent.Kind())
	require.Empty(t, z.Stack)
}

func TestDepositWithoutZonesLogsError(t *testing.T) {
	w := ecs.NewWorld()
	f := newAgentFixture(t, w, agentOptions{rand: 0.5})
	item := addCarryable(t, w, "red", 1, 0.5, true)

	f.agent.Start()
	f.hold(t, item)
	f.agent.ChangeState(DepositState)

	require.Equal(t, component.StateIdle, f.agent.State())
	require.Equal(t, 1, messages(f.logs, "cannot deposit: no drop zones configured"))
}

func TestPreconditionViolationsFallBack(t *testing.T) {
	t.Run("deposit without item", func(t *testing.T) {
		w := ecs.NewWorld()
		f := newAgentFixture(t, w, agentOptions{rand: 0.5})
		f.agent.Start()
		f.agent.ChangeState(DepositState)

		require.Equal(t, component.StateIdle, f.agent.State())
		require.Equal(t, 1, messages(f.logs, "cannot deposit: nothing held"))
	})

	t.Run("collect without target", func(t *testing.T) {
		w := ecs.NewWorld()
		f := newAgentFixture(t, w, agentOptions{rand: 0.9})
		f.agent.Start()
		f.agent.ChangeState(CollectState)

		require.Equal(t, component.StateSearch, f.agent.State())
		require.Equal(t, 1, messages(f.logs, "cannot collect: no target"))
	})
}

func TestFoundReturnsToSearchWhenTargetTaken(t *testing.T) {
	w := ecs.NewWorld()
	f := newAgentFixture(t, w, agentOptions{rand: 0.9})
	item := addCarryable(t, w, "red", 3, 0.5, true)
	f.query.entities = []ecs.Entity{item}

	f.agent.Start()
	f.agent.ChangeState(SearchState)
	f.agent.Tick(0.1)
	require.Equal(t, component.StateFound, f.agent.State())

	c, _ := ecs.Get(w, item, component.CarryableComponent.Kind())
	c.Holder = 999
	f.query.entities = nil
	f.agent.Tick(0.1)

	require.Equal(t, component.StateSearch, f.agent.State())
	require.Zero(t, f.agent.Target())
	require.Zero(t, c.ClaimedBy)
}

func TestCollectIgnoresStaleCompletion(t *testing.T) {
	w := ecs.NewWorld()
	f := newAgentFixture(t, w, agentOptions{rand: 0.9})
	item := addCarryable(t, w, "red", 0, 0.5, true)
	f.query.entities = []ecs.Entity{item}

	f.agent.Start()
	f.agent.ChangeState(SearchState)
	f.agent.Tick(0.1)
	f.tickUntil(0.1, 50, func() bool { return f.agent.State() == component.StateCollect })
	require.Equal(t, component.StateCollect, f.agent.State())

	cb := f.presenter.pending[f.agent.Entity()]
	require.NotNil(t, cb)
	f.agent.ChangeState(IdleState)
	cb()

	require.Equal(t, component.StateIdle, f.agent.State())
	require.Zero(t, f.agent.Held())
	require.Zero(t, f.agent.Target())
	c, _ := ecs.Get(w, item, component.CarryableComponent.Kind())
	require.Zero(t, c.ClaimedBy, "leaving Collect early releases the claim")
}

func TestHeldNeverEqualsTarget(t *testing.T) {
	w := ecs.NewWorld()
	zone := addZone(t, w, "bin", 5, 0.5, "red")
	f := newAgentFixture(t, w, agentOptions{rand: 0.9, zones: []ecs.Entity{zone}})
	items := []ecs.Entity{
		addCarryable(t, w, "red", 1, 0.5, true),
		addCarryable(t, w, "red", 2, 0.5, true),
		addCarryable(t, w, "red", 3, 0.5, true),
	}
	f.query.entities = items

	f.agent.Start()
	for i := 0; i < 2000; i++ {
		f.agent.Tick(0.05)
		if f.agent.State() == component.StateCollect {
			f.presenter.finish(f.agent.Entity())
		}
		held, target := f.agent.Held(), f.agent.Target()
		if held != 0 || target != 0 {
			require.NotEqual(t, held, target, "tick %d", i)
		}
	}

	z, _ := ecs.Get(w, zone, component.DropZoneComponent.Kind())
	require.Len(t, z.Stack, len(items))
}

func TestPatrolBoundsFromZones(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		half   float64
		wantLo float64
		wantHi float64
	}{
		{name: "inset", xs: []float64{10, -10}, half: 1, wantLo: -9, wantHi: 9},
		{name: "collapsed", xs: []float64{0, 1}, half: 2, wantLo: 0.5, wantHi: 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := PatrolBoundsFromZones(tc.xs, tc.half)
			require.Equal(t, tc.wantLo, b.MinX)
			require.Equal(t, tc.wantHi, b.MaxX)
		})
	}

	b := PatrolBoundsFromZones(nil, 1)
	require.Equal(t, 1e9, b.Clamp(1e9))
}
