package system

import (
	"errors"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

func looseFactory(w *ecs.World, kind component.CarryableKind, x, y float64) (ecs.Entity, error) {
	e := ecs.CreateEntity(w)
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: x, Y: y}); err != nil {
		return 0, err
	}
	if err := ecs.Add(w, e, component.CarryableComponent.Kind(), &component.Carryable{Kind: kind, Width: 1, Height: 1}); err != nil {
		return 0, err
	}
	return e, nil
}

func spawnConfigForTest() SpawnConfig {
	return SpawnConfig{
		IntervalMin: 1,
		IntervalMax: 3,
		AreaMin:     cp.Vector{X: -10, Y: 5},
		AreaMax:     cp.Vector{X: 10, Y: 5},
		Kinds:       []component.CarryableKind{"red", "blue"},
	}
}

func TestSpawnCadence(t *testing.T) {
	w := ecs.NewWorld()
	s := NewSpawnSystem(spawnConfigForTest(), looseFactory, fixedRand{v: 0.5}, nil)
	w.AddSystem(s)

	w.Step(0.5)
	require.Equal(t, 1, s.Spawned(), "first spawn happens immediately")

	events := w.Events().Peek()
	require.Len(t, events, 1)
	require.Equal(t, EventSpawned, events[0].Type)
	ev := events[0].Data.(SpawnedEvent)
	require.Equal(t, component.CarryableKind("blue"), ev.Kind)
	require.Equal(t, 0.0, ev.X)
	require.Equal(t, 5.0, ev.Y)
	require.True(t, ecs.Has(w, ev.Item, component.SpawnedTagComponent.Kind()))

	// A 0.5 draw on [1, 3] waits two seconds.
	for i := 0; i < 3; i++ {
		w.Step(0.5)
	}
	require.Equal(t, 1, s.Spawned())
	w.Step(0.5)
	require.Equal(t, 2, s.Spawned())
}

func TestSpawnRespectsMaxLoose(t *testing.T) {
	w := ecs.NewWorld()
	cfg := spawnConfigForTest()
	cfg.IntervalMin, cfg.IntervalMax = 0.1, 0.1
	cfg.MaxLoose = 2
	s := NewSpawnSystem(cfg, looseFactory, fixedRand{v: 0.1}, nil)
	w.AddSystem(s)

	for i := 0; i < 10; i++ {
		w.Step(0.1)
	}
	require.Equal(t, 2, s.Spawned())

	// Stacked carryables no longer count as loose.
	ecs.ForEach(w, component.CarryableComponent.Kind(), func(_ ecs.Entity, c *component.Carryable) {
		if c.Zone == 0 {
			c.Zone = 1
		}
	})
	w.Step(0.1)
	require.Equal(t, 3, s.Spawned())
}

func TestSpawnWithoutKindsLogsOnce(t *testing.T) {
	w := ecs.NewWorld()
	log, logs := observedLogger()
	cfg := spawnConfigForTest()
	cfg.Kinds = nil
	s := NewSpawnSystem(cfg, looseFactory, fixedRand{v: 0.5}, log)
	w.AddSystem(s)

	for i := 0; i < 5; i++ {
		w.Step(0.5)
	}
	require.Zero(t, s.Spawned())
	require.Equal(t, 1, messages(logs, "spawner has no carryable kinds configured"))
}

func TestSpawnFactoryError(t *testing.T) {
	w := ecs.NewWorld()
	log, logs := observedLogger()
	failing := func(*ecs.World, component.CarryableKind, float64, float64) (ecs.Entity, error) {
		return 0, errors.New("no such kind")
	}
	s := NewSpawnSystem(spawnConfigForTest(), failing, fixedRand{v: 0.5}, log)
	w.AddSystem(s)

	w.Step(0.1)
	require.Zero(t, s.Spawned())
	require.Equal(t, 1, messages(logs, "spawn carryable"))
}
