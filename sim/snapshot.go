package sim

import (
	"fmt"
	"sort"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// Snapshot is a read-only copy of the world for observers.
type Snapshot struct {
	Tick       uint64              `json:"tick"`
	Agents     []AgentSnapshot     `json:"agents"`
	Zones      []ZoneSnapshot      `json:"zones"`
	Carryables []CarryableSnapshot `json:"carryables"`
}

type AgentSnapshot struct {
	Name   string  `json:"name"`
	State  string  `json:"state"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Facing float64 `json:"facing"`
	Held   string  `json:"held,omitempty"`
	Target string  `json:"target,omitempty"`
}

type ZoneSnapshot struct {
	Name    string   `json:"name"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Accepts []string `json:"accepts"`
	Count   int      `json:"count"`
	Height  float64  `json:"height"`
}

type CarryableSnapshot struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Color   string  `json:"color"`
	Resting bool    `json:"resting"`
	Held    bool    `json:"held"`
	Stacked bool    `json:"stacked"`

	// SpawnedAt is zero for carryables placed by the scene.
	SpawnedAt uint64 `json:"spawned_at,omitempty"`
}

func (s *Sim) Snapshot() Snapshot {
	w := s.world
	snap := Snapshot{Tick: w.Tick()}

	for _, a := range s.agents.Agents() {
		as := AgentSnapshot{Name: a.Name(), State: string(a.State()), Facing: 1}
		if t, ok := ecs.Get(w, a.Entity(), component.TransformComponent.Kind()); ok {
			as.X, as.Y, as.Facing = t.X, t.Y, t.Facing()
		}
		if a.Held() != 0 {
			as.Held = a.Held().String()
		}
		if a.Target() != 0 {
			as.Target = a.Target().String()
		}
		snap.Agents = append(snap.Agents, as)
	}

	for _, ze := range s.zones {
		z, ok := ecs.Get(w, ze, component.DropZoneComponent.Kind())
		if !ok {
			continue
		}
		zs := ZoneSnapshot{Name: z.Name, Count: len(z.Stack), Height: z.Height}
		for k := range z.Accepted {
			zs.Accepts = append(zs.Accepts, string(k))
		}
		sort.Strings(zs.Accepts)
		if t, ok := ecs.Get(w, ze, component.TransformComponent.Kind()); ok {
			zs.X, zs.Y = t.X, t.Y
		}
		snap.Zones = append(snap.Zones, zs)
	}

	ecs.ForEach2(w, component.CarryableComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, c *component.Carryable, t *component.Transform) {
		cs := CarryableSnapshot{
			ID:      e.String(),
			Kind:    string(c.Kind),
			X:       t.X,
			Y:       t.Y,
			Color:   hexColor(c.Color.R, c.Color.G, c.Color.B),
			Resting: c.Resting,
			Held:    c.Held(),
			Stacked: c.Stacked(),
		}
		if tag, ok := ecs.Get(w, e, component.SpawnedTagComponent.Kind()); ok {
			cs.SpawnedAt = tag.Tick
		}
		snap.Carryables = append(snap.Carryables, cs)
	})
	sort.Slice(snap.Carryables, func(i, j int) bool { return snap.Carryables[i].ID < snap.Carryables[j].ID })
	return snap
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
