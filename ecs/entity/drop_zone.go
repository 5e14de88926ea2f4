package entity

import (
	"fmt"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
	"github.com/milk9111/boxsorter/prefabs"
)

func NewDropZone(w *ecs.World, spec prefabs.DropZoneSpec) (ecs.Entity, error) {
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), transformFromSpec(spec.Transform)); err != nil {
		return 0, fmt.Errorf("drop zone: add transform: %w", err)
	}

	kinds := make([]component.CarryableKind, 0, len(spec.Accepts))
	for _, k := range spec.Accepts {
		kinds = append(kinds, component.CarryableKind(k))
	}
	zone := component.NewDropZone(spec.Name, kinds...)
	zone.Rule = spec.Rule
	if err := ecs.Add(w, entity, component.DropZoneComponent.Kind(), &zone); err != nil {
		return 0, fmt.Errorf("drop zone: add drop zone: %w", err)
	}

	return entity, nil
}
