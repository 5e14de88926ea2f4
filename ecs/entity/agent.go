package entity

import (
	"fmt"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
	"github.com/milk9111/boxsorter/prefabs"
)

// NewAgent creates the entity an agent controller drives. The controller
// itself is built by the caller.
func NewAgent(w *ecs.World, spec prefabs.AgentSpec, clips map[string]component.AnimationClip) (ecs.Entity, error) {
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.AgentTagComponent.Kind(), &component.AgentTag{Name: spec.Name}); err != nil {
		return 0, fmt.Errorf("agent: add agent tag: %w", err)
	}

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), transformFromSpec(spec.Transform)); err != nil {
		return 0, fmt.Errorf("agent: add transform: %w", err)
	}

	if err := ecs.Add(w, entity, component.AIStateComponent.Kind(), &component.AIState{}); err != nil {
		return 0, fmt.Errorf("agent: add ai state: %w", err)
	}

	if err := ecs.Add(w, entity, component.AnimationComponent.Kind(), &component.Animation{Clips: clips}); err != nil {
		return 0, fmt.Errorf("agent: add animation: %w", err)
	}

	return entity, nil
}

func transformFromSpec(t prefabs.TransformSpec) *component.Transform {
	out := &component.Transform{
		X:        t.X,
		Y:        t.Y,
		ScaleX:   t.ScaleX,
		ScaleY:   t.ScaleY,
		Rotation: t.Rotation,
	}
	if out.ScaleX == 0 {
		out.ScaleX = 1
	}
	if out.ScaleY == 0 {
		out.ScaleY = 1
	}
	return out
}

// ClipsFromSpec converts the scene's animation table.
func ClipsFromSpec(specs map[string]prefabs.AnimationSpec) map[string]component.AnimationClip {
	clips := make(map[string]component.AnimationClip, len(specs))
	for name, s := range specs {
		clips[name] = component.AnimationClip{Name: name, Duration: s.Duration, Loop: s.Loop}
	}
	return clips
}
