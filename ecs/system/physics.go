package system

import (
	"iter"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

const (
	collisionTypeCarryable cp.CollisionType = iota + 1
	collisionTypeSolid
)

// RestSpeed is the largest vertical speed at which a body counts as resting.
const RestSpeed = 0.05

// PhysicsConfig describes the floor and walls of the play area. Y points up.
type PhysicsConfig struct {
	Gravity    float64
	GroundY    float64
	MinX       float64
	MaxX       float64
	WallHeight float64
	Iterations int
}

func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Gravity:    -9.81,
		GroundY:    0,
		MinX:       -12,
		MaxX:       12,
		WallHeight: 20,
		Iterations: 20,
	}
}

type PhysicsSystem struct {
	cfg   PhysicsConfig
	space *cp.Space

	entities map[ecs.Entity]*bodyInfo
	shapes   map[*cp.Shape]ecs.Entity
	bounds   []*cp.Shape
}

type bodyInfo struct {
	body    *cp.Body
	shape   *cp.Shape
	inSpace bool
}

func NewPhysicsSystem(cfg PhysicsConfig) *PhysicsSystem {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 20
	}
	space := cp.NewSpace()
	space.Iterations = uint(cfg.Iterations)
	space.SetGravity(cp.Vector{X: 0, Y: cfg.Gravity})
	ps := &PhysicsSystem{
		cfg:      cfg,
		space:    space,
		entities: make(map[ecs.Entity]*bodyInfo),
		shapes:   make(map[*cp.Shape]ecs.Entity),
	}
	ps.buildBounds()
	return ps
}

func (ps *PhysicsSystem) Space() *cp.Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

func (ps *PhysicsSystem) Config() PhysicsConfig {
	return ps.cfg
}

func (ps *PhysicsSystem) Update(w *ecs.World) {
	if ps == nil || w == nil {
		return
	}
	ps.syncEntities(w)

	if dt := w.DeltaTime(); dt > 0 {
		ps.space.Step(dt)
	}

	ps.syncTransforms(w)
}

func (ps *PhysicsSystem) buildBounds() {
	c := ps.cfg
	top := c.GroundY + c.WallHeight
	segments := []struct{ a, b cp.Vector }{
		{a: cp.Vector{X: c.MinX, Y: c.GroundY}, b: cp.Vector{X: c.MaxX, Y: c.GroundY}}, // floor
		{a: cp.Vector{X: c.MinX, Y: c.GroundY}, b: cp.Vector{X: c.MinX, Y: top}},       // left
		{a: cp.Vector{X: c.MaxX, Y: c.GroundY}, b: cp.Vector{X: c.MaxX, Y: top}},       // right
	}
	for _, seg := range segments {
		shape := cp.NewSegment(ps.space.StaticBody, seg.a, seg.b, 0.05)
		shape.SetFriction(0.8)
		shape.SetCollisionType(collisionTypeSolid)
		ps.space.AddShape(shape)
		ps.bounds = append(ps.bounds, shape)
	}
}

func (ps *PhysicsSystem) syncEntities(w *ecs.World) {
	ps.cleanupEntities(w)

	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		info := ps.entities[e]
		if info == nil {
			info = ps.createBodyInfo(transform, bodyComp)
			ps.entities[e] = info
			ps.shapes[info.shape] = e
			bodyComp.Body = info.body
			bodyComp.Shape = info.shape
		}

		switch {
		case bodyComp.Disabled && info.inSpace:
			ps.space.RemoveShape(info.shape)
			ps.space.RemoveBody(info.body)
			info.inSpace = false
		case !bodyComp.Disabled && !info.inSpace:
			info.body.SetPosition(cp.Vector{X: transform.X, Y: transform.Y})
			info.body.SetVelocity(0, 0)
			info.body.SetAngle(0)
			ps.space.AddBody(info.body)
			ps.space.AddShape(info.shape)
			info.inSpace = true
		}
	})
}

// createBodyInfo builds an upright box body centered on the transform. It is
// added to the space by syncEntities unless disabled.
func (ps *PhysicsSystem) createBodyInfo(transform *component.Transform, bodyComp *component.PhysicsBody) *bodyInfo {
	width, height := bodyComp.Width, bodyComp.Height
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	mass := bodyComp.Mass
	if mass <= 0 {
		mass = 1
	}

	body := cp.NewBody(mass, math.Inf(1))
	body.SetPosition(cp.Vector{X: transform.X, Y: transform.Y})

	shape := cp.NewBox(body, width, height, 0)
	shape.SetFriction(bodyComp.Friction)
	shape.SetElasticity(bodyComp.Elasticity)
	shape.SetCollisionType(collisionTypeCarryable)

	return &bodyInfo{body: body, shape: shape}
}

func (ps *PhysicsSystem) syncTransforms(w *ecs.World) {
	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		info := ps.entities[e]
		if info == nil || !info.inSpace {
			return
		}
		pos := info.body.Position()
		transform.X = pos.X
		transform.Y = pos.Y
		transform.Rotation = info.body.Angle()

		if c, ok := ecs.Get(w, e, component.CarryableComponent.Kind()); ok {
			c.Resting = !c.Held() && !c.Stacked() && math.Abs(info.body.Velocity().Y) <= RestSpeed
		}
	})
}

func (ps *PhysicsSystem) cleanupEntities(w *ecs.World) {
	for e, info := range ps.entities {
		if ecs.Has(w, e, component.PhysicsBodyComponent.Kind()) {
			continue
		}
		if info.inSpace {
			ps.space.RemoveShape(info.shape)
			ps.space.RemoveBody(info.body)
		}
		delete(ps.shapes, info.shape)
		delete(ps.entities, e)
	}
}

// Nearby yields entities whose simulated shapes overlap the circle around
// center. Disabled bodies are not in the space and never match.
func (ps *PhysicsSystem) Nearby(center cp.Vector, radius float64) iter.Seq[ecs.Entity] {
	return func(yield func(ecs.Entity) bool) {
		if ps == nil || radius <= 0 {
			return
		}
		bb := cp.BB{L: center.X - radius, B: center.Y - radius, R: center.X + radius, T: center.Y + radius}
		var hits []ecs.Entity
		ps.space.BBQuery(bb, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
			e, ok := ps.shapes[shape]
			if !ok {
				return
			}
			if shapeDistance(shape, center) <= radius {
				hits = append(hits, e)
			}
		}, nil)
		for _, e := range hits {
			if !yield(e) {
				return
			}
		}
	}
}

// shapeDistance is the distance from p to the closest point of shape's
// bounding box.
func shapeDistance(shape *cp.Shape, p cp.Vector) float64 {
	bb := shape.BB()
	dx := math.Max(math.Max(bb.L-p.X, 0), p.X-bb.R)
	dy := math.Max(math.Max(bb.B-p.Y, 0), p.Y-bb.T)
	return math.Hypot(dx, dy)
}
