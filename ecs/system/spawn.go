package system

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// CarryableFactory creates a carryable of kind at (x, y).
type CarryableFactory func(w *ecs.World, kind component.CarryableKind, x, y float64) (ecs.Entity, error)

type SpawnConfig struct {
	IntervalMin float64
	IntervalMax float64
	AreaMin     cp.Vector
	AreaMax     cp.Vector
	Kinds       []component.CarryableKind
	// MaxLoose caps carryables that are neither held nor stacked; 0 means no cap.
	MaxLoose int
}

// SpawnSystem drops a random carryable into the spawn area at random
// intervals, starting on the first tick.
type SpawnSystem struct {
	cfg     SpawnConfig
	factory CarryableFactory
	rng     Rand
	log     *zap.Logger

	untilNext   float64
	warnedEmpty bool
	spawned     int
}

func NewSpawnSystem(cfg SpawnConfig, factory CarryableFactory, rng Rand, log *zap.Logger) *SpawnSystem {
	return &SpawnSystem{cfg: cfg, factory: factory, rng: rng, log: common.OrNop(log)}
}

// SetConfig swaps the spawn settings; the current countdown is kept.
func (s *SpawnSystem) SetConfig(cfg SpawnConfig) {
	s.cfg = cfg
	s.warnedEmpty = false
}

func (s *SpawnSystem) Spawned() int { return s.spawned }

func (s *SpawnSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	if len(s.cfg.Kinds) == 0 || s.factory == nil {
		if !s.warnedEmpty {
			s.log.Error("spawner has no carryable kinds configured")
			s.warnedEmpty = true
		}
		return
	}

	s.untilNext -= w.DeltaTime()
	if s.untilNext > 0 {
		return
	}
	s.untilNext = s.uniform(s.cfg.IntervalMin, s.cfg.IntervalMax)

	if s.cfg.MaxLoose > 0 && countLoose(w) >= s.cfg.MaxLoose {
		return
	}

	kind := s.cfg.Kinds[int(s.rand()*float64(len(s.cfg.Kinds)))%len(s.cfg.Kinds)]
	x := s.uniform(s.cfg.AreaMin.X, s.cfg.AreaMax.X)
	y := s.uniform(s.cfg.AreaMin.Y, s.cfg.AreaMax.Y)
	e, err := s.factory(w, kind, x, y)
	if err != nil {
		s.log.Error("spawn carryable", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.spawned++
	if err := ecs.Add(w, e, component.SpawnedTagComponent.Kind(), &component.SpawnedTag{Tick: w.Tick()}); err != nil {
		s.log.Warn("tag spawned carryable", zap.Stringer("item", e), zap.Error(err))
	}
	pushEvent(w, EventSpawned, SpawnedEvent{Item: e, Kind: kind, X: x, Y: y, Tick: w.Tick()})
}

func (s *SpawnSystem) rand() float64 {
	if s.rng == nil {
		return 0.5
	}
	return s.rng.Float64()
}

func (s *SpawnSystem) uniform(lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.rand()*(hi-lo)
}

func countLoose(w *ecs.World) int {
	n := 0
	ecs.ForEach(w, component.CarryableComponent.Kind(), func(_ ecs.Entity, c *component.Carryable) {
		if !c.Held() && !c.Stacked() {
			n++
		}
	})
	return n
}
