package entity

import (
	"fmt"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
	"github.com/milk9111/boxsorter/prefabs"
)

// NewCarryable creates a loose carryable of kind centered on (x, y).
func NewCarryable(w *ecs.World, kind component.CarryableKind, spec prefabs.KindSpec, x, y float64) (ecs.Entity, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return 0, fmt.Errorf("carryable %s: footprint must be positive", kind)
	}

	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), &component.Transform{
		X:      x,
		Y:      y,
		ScaleX: 1,
		ScaleY: 1,
	}); err != nil {
		return 0, fmt.Errorf("carryable: add transform: %w", err)
	}

	if err := ecs.Add(w, entity, component.CarryableComponent.Kind(), &component.Carryable{
		Kind:   kind,
		Color:  spec.Color.RGBA,
		Width:  spec.Width,
		Height: spec.Height,
	}); err != nil {
		return 0, fmt.Errorf("carryable: add carryable: %w", err)
	}

	if err := ecs.Add(w, entity, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{
		Width:    spec.Width,
		Height:   spec.Height,
		Mass:     spec.Mass,
		Friction: spec.Friction,
	}); err != nil {
		return 0, fmt.Errorf("carryable: add physics body: %w", err)
	}

	return entity, nil
}

// CarryableFactory binds NewCarryable to a scene's kind table.
func CarryableFactory(kinds map[string]prefabs.KindSpec) func(*ecs.World, component.CarryableKind, float64, float64) (ecs.Entity, error) {
	return func(w *ecs.World, kind component.CarryableKind, x, y float64) (ecs.Entity, error) {
		spec, ok := kinds[string(kind)]
		if !ok {
			return 0, fmt.Errorf("carryable: unknown kind %q", kind)
		}
		return NewCarryable(w, kind, spec, x, y)
	}
}
