package system

import (
	"iter"
	"math"
	"slices"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// SpatialQuery yields entities whose colliders overlap a circle. The sequence
// is lazy and single-use.
type SpatialQuery interface {
	Nearby(center cp.Vector, radius float64) iter.Seq[ecs.Entity]
}

// distanceEpsilon treats candidates closer than this as equidistant.
const distanceEpsilon = 1e-9

type detectCandidate struct {
	e    ecs.Entity
	dist float64
}

// Detector finds the nearest claimable, resting carryable around an agent.
type Detector struct {
	query SpatialQuery
}

func NewDetector(q SpatialQuery) *Detector {
	return &Detector{query: q}
}

// Nearest returns the closest resting carryable overlapping the circle of
// radius around from that agent may target, and claims it for agent. Ties go to the lowest entity.
func (d *Detector) Nearest(w *ecs.World, agent ecs.Entity, from cp.Vector, radius float64) (ecs.Entity, bool) {
	if d == nil || d.query == nil || w == nil || radius <= 0 {
		return 0, false
	}

	var candidates []detectCandidate
	seen := make(map[ecs.Entity]struct{})
	for e := range d.query.Nearby(from, radius) {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		c, ok := ecs.Get(w, e, component.CarryableComponent.Kind())
		if !ok || !c.AtRest() || !c.ClaimableBy(uint64(agent)) {
			continue
		}
		t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			continue
		}
		// Range is the query's collider overlap; the center distance only orders.
		dist := from.Distance(cp.Vector{X: t.X, Y: t.Y})
		candidates = append(candidates, detectCandidate{e: e, dist: dist})
	}
	if len(candidates) == 0 {
		return 0, false
	}

	slices.SortFunc(candidates, func(a, b detectCandidate) int {
		if math.Abs(a.dist-b.dist) > distanceEpsilon {
			if a.dist < b.dist {
				return -1
			}
			return 1
		}
		switch {
		case a.e < b.e:
			return -1
		case a.e > b.e:
			return 1
		}
		return 0
	})

	for _, cand := range candidates {
		c, _ := ecs.Get(w, cand.e, component.CarryableComponent.Kind())
		if c.TryClaim(uint64(agent)) {
			return cand.e, true
		}
	}
	return 0, false
}
