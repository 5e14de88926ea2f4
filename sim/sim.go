// Package sim assembles a box sorting world from a scene spec and steps it.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
	"github.com/milk9111/boxsorter/ecs/entity"
	"github.com/milk9111/boxsorter/ecs/system"
	"github.com/milk9111/boxsorter/prefabs"
)

type Options struct {
	Seed int64
	Log  *zap.Logger
	// OnEvent receives every world event at the end of the step that
	// produced it.
	OnEvent func(ecs.Event)
	// Rand overrides the seeded source, mainly for tests.
	Rand system.Rand
}

type Sim struct {
	world   *ecs.World
	physics *system.PhysicsSystem
	agents  *system.AgentSystem
	anim    *system.AnimationSystem
	spawner *system.SpawnSystem
	policy  *system.ZonePolicy
	zones   []ecs.Entity
	log     *zap.Logger
}

func New(spec *prefabs.SceneSpec, opts Options) (*Sim, error) {
	if spec == nil {
		return nil, fmt.Errorf("sim: nil scene")
	}
	log := common.OrNop(opts.Log)
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(opts.Seed))
	}

	w := ecs.NewWorld()
	s := &Sim{
		world:   w,
		physics: system.NewPhysicsSystem(physicsConfig(spec.World)),
		agents:  system.NewAgentSystem(),
		anim:    system.NewAnimationSystem(entity.ClipsFromSpec(spec.Animations)),
		log:     log,
	}

	zoneX := make([]float64, 0, len(spec.DropZones))
	for _, zs := range spec.DropZones {
		e, err := entity.NewDropZone(w, zs)
		if err != nil {
			return nil, fmt.Errorf("sim: %w", err)
		}
		s.zones = append(s.zones, e)
		zoneX = append(zoneX, zs.Transform.X)
	}
	if len(s.zones) == 0 {
		log.Error("scene has no drop zones; agents will idle")
	}

	rules := make(map[string]system.ZoneRule)
	for _, name := range spec.Rules() {
		src, err := prefabs.LoadScript(name)
		if err != nil {
			return nil, fmt.Errorf("sim: load rule %s: %w", name, err)
		}
		rule, err := system.NewScriptedZoneRule(name, src)
		if err != nil {
			return nil, fmt.Errorf("sim: %w", err)
		}
		rules[name] = rule
	}
	policy := system.NewZonePolicy(rules, log)
	s.policy = policy
	detector := system.NewDetector(s.physics)

	for _, as := range spec.Agents {
		e, err := entity.NewAgent(w, as, entity.ClipsFromSpec(spec.Animations))
		if err != nil {
			return nil, fmt.Errorf("sim: %w", err)
		}
		cfg := AgentConfig(as)
		a := system.NewAgent(w, e, cfg, system.PatrolBoundsFromZones(zoneX, cfg.HalfWidth), s.zones, system.AgentDeps{
			Detector:  detector,
			Presenter: s.anim,
			Policy:    policy,
			Rand:      rng,
			Log:       log,
		})
		s.agents.Add(a)
	}

	s.spawner = system.NewSpawnSystem(spawnConfig(spec.Spawner), entity.CarryableFactory(spec.Kinds), rng, log)

	w.AddSystem(s.spawner)
	w.AddSystem(s.physics)
	w.AddSystem(s.agents)
	w.AddSystem(s.anim)
	if opts.OnEvent != nil {
		w.AddSystem(system.NewEventRelaySystem(opts.OnEvent))
	}
	return s, nil
}

// Step advances the simulation by dt seconds.
func (s *Sim) Step(dt float64) {
	s.world.Step(dt)
}

func (s *Sim) World() *ecs.World { return s.world }
func (s *Sim) Physics() *system.PhysicsSystem { return s.physics }
func (s *Sim) Agents() []*system.Agent { return s.agents.Agents() }
func (s *Sim) Zones() []ecs.Entity { return append([]ecs.Entity(nil), s.zones...) }
func (s *Sim) Spawner() *system.SpawnSystem { return s.spawner }
func (s *Sim) Animation() *system.AnimationSystem { return s.anim }

// Agent finds an agent by name.
func (s *Sim) Agent(name string) (*system.Agent, bool) {
	for _, a := range s.agents.Agents() {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// ApplyTuning pushes reloadable values from spec into the running world:
// agent speeds, idle range, sensing radius, grip, clip durations and spawner
// timing. Zones, kinds and the agent roster are fixed at construction.
func (s *Sim) ApplyTuning(spec *prefabs.SceneSpec) {
	if s == nil || spec == nil {
		return
	}
	for _, as := range spec.Agents {
		a, ok := s.Agent(as.Name)
		if !ok {
			s.log.Warn("tuning for unknown agent", zap.String("agent", as.Name))
			continue
		}
		a.SetConfig(AgentConfig(as))
	}

	clips := entity.ClipsFromSpec(spec.Animations)
	s.anim.SetClips(clips)
	ecs.ForEach(s.world, component.AnimationComponent.Kind(), func(_ ecs.Entity, anim *component.Animation) {
		anim.Clips = clips
	})

	s.spawner.SetConfig(spawnConfig(spec.Spawner))
	s.log.Info("tuning applied", zap.Int("agents", len(spec.Agents)), zap.Int("clips", len(clips)))
}

// ReloadRule recompiles the named zone rule script. The previous rule stays
// active when the new source fails to load or compile.
func (s *Sim) ReloadRule(name string) error {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return fmt.Errorf("sim: load rule %s: %w", name, err)
	}
	rule, err := system.NewScriptedZoneRule(name, src)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	s.policy.SetRule(name, rule)
	s.log.Info("zone rule reloaded", zap.String("rule", name))
	return nil
}

// AgentConfig fills zero values of spec with defaults.
func AgentConfig(spec prefabs.AgentSpec) system.AgentConfig {
	cfg := system.DefaultAgentConfig()
	if spec.SearchSpeed > 0 {
		cfg.SearchSpeed = spec.SearchSpeed
	}
	if spec.FoundSpeed > 0 {
		cfg.FoundSpeed = spec.FoundSpeed
	}
	if spec.DepositSpeed > 0 {
		cfg.DepositSpeed = spec.DepositSpeed
	}
	if spec.Idle.Min > 0 || spec.Idle.Max > 0 {
		cfg.IdleMin, cfg.IdleMax = spec.Idle.Min, spec.Idle.Max
	}
	if spec.SensingRadius > 0 {
		cfg.SensingRadius = spec.SensingRadius
	}
	if spec.HalfWidth > 0 {
		cfg.HalfWidth = spec.HalfWidth
	}
	if spec.Grip != (prefabs.Vec2Spec{}) {
		cfg.Grip = cp.Vector{X: spec.Grip.X, Y: spec.Grip.Y}
	}
	return cfg
}

func physicsConfig(spec prefabs.WorldSpec) system.PhysicsConfig {
	cfg := system.DefaultPhysicsConfig()
	if spec.Gravity != 0 {
		cfg.Gravity = spec.Gravity
	}
	cfg.GroundY = spec.GroundY
	if spec.MaxX > spec.MinX {
		cfg.MinX, cfg.MaxX = spec.MinX, spec.MaxX
	}
	if spec.WallHeight > 0 {
		cfg.WallHeight = spec.WallHeight
	}
	if spec.Iterations > 0 {
		cfg.Iterations = spec.Iterations
	}
	return cfg
}

func spawnConfig(spec prefabs.SpawnerSpec) system.SpawnConfig {
	kinds := make([]component.CarryableKind, 0, len(spec.Kinds))
	for _, k := range spec.Kinds {
		kinds = append(kinds, component.CarryableKind(k))
	}
	return system.SpawnConfig{
		IntervalMin: spec.Interval.Min,
		IntervalMax: spec.Interval.Max,
		AreaMin:     cp.Vector{X: spec.Area.Min.X, Y: spec.Area.Min.Y},
		AreaMax:     cp.Vector{X: spec.Area.Max.X, Y: spec.Area.Max.Y},
		Kinds:       kinds,
		MaxLoose:    spec.MaxLoose,
	}
}
