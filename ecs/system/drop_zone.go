package system

import (
	"image/color"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// ZoneRule is an extra acceptance check a drop zone can opt into by name.
type ZoneRule interface {
	Accept(zone *component.DropZone, item *component.Carryable) (bool, error)
}

// ZonePolicy decides whether a zone takes a carryable: the kind must be in
// the zone's accepted set, and a named rule, when present, must agree.
type ZonePolicy struct {
	rules map[string]ZoneRule
	log   *zap.Logger
}

func NewZonePolicy(rules map[string]ZoneRule, log *zap.Logger) *ZonePolicy {
	if log == nil {
		log = zap.NewNop()
	}
	if rules == nil {
		rules = make(map[string]ZoneRule)
	}
	return &ZonePolicy{rules: rules, log: log}
}

// SetRule installs or replaces the rule registered under name.
func (p *ZonePolicy) SetRule(name string, rule ZoneRule) {
	p.rules[name] = rule
}

func (p *ZonePolicy) Accepts(zone *component.DropZone, item *component.Carryable) bool {
	if zone == nil || item == nil || !zone.AcceptsKind(item.Kind) {
		return false
	}
	if zone.Rule == "" || p == nil {
		return true
	}
	rule, ok := p.rules[zone.Rule]
	if !ok {
		p.log.Error("drop zone rule not found", zap.String("zone", zone.Name), zap.String("rule", zone.Rule))
		return false
	}
	accept, err := rule.Accept(zone, item)
	if err != nil {
		p.log.Error("drop zone rule failed", zap.String("zone", zone.Name), zap.String("rule", zone.Rule), zap.Error(err))
		return false
	}
	return accept
}

// SelectDropZone returns the zone nearest to from that accepts item. Equal
// distances resolve to the zone listed first.
func SelectDropZone(w *ecs.World, zones []ecs.Entity, from cp.Vector, item ecs.Entity, policy *ZonePolicy) (ecs.Entity, bool) {
	c, ok := ecs.Get(w, item, component.CarryableComponent.Kind())
	if !ok {
		return 0, false
	}
	var (
		best     ecs.Entity
		bestDist float64
	)
	for _, ze := range zones {
		zone, ok := ecs.Get(w, ze, component.DropZoneComponent.Kind())
		if !ok || !policy.Accepts(zone, c) {
			continue
		}
		anchor, ok := ecs.Get(w, ze, component.TransformComponent.Kind())
		if !ok {
			continue
		}
		d := from.Distance(cp.Vector{X: anchor.X, Y: anchor.Y})
		if best == 0 || d < bestDist-distanceEpsilon {
			best, bestDist = ze, d
		}
	}
	return best, best != 0
}

// Placement is where a deposited carryable ended up.
type Placement struct {
	Zone       ecs.Entity
	StackIndex int
	LocalX     float64
	LocalY     float64
}

// DepositInto stacks item on top of zone. It re-checks acceptance and leaves
// everything untouched when the zone refuses the item.
func DepositInto(w *ecs.World, zoneEnt, item ecs.Entity, policy *ZonePolicy) (Placement, bool) {
	zone, ok := ecs.Get(w, zoneEnt, component.DropZoneComponent.Kind())
	if !ok {
		return Placement{}, false
	}
	c, ok := ecs.Get(w, item, component.CarryableComponent.Kind())
	if !ok || c.Stacked() || !policy.Accepts(zone, c) {
		return Placement{}, false
	}

	if body, ok := ecs.Get(w, item, component.PhysicsBodyComponent.Kind()); ok {
		body.Disabled = true
	}

	p := Placement{Zone: zoneEnt, StackIndex: len(zone.Stack), LocalX: 0, LocalY: zone.NextLocalY()}
	c.Holder = 0
	c.ClaimedBy = 0
	c.Resting = false
	c.Zone = uint64(zoneEnt)
	c.StackIndex = p.StackIndex
	c.LocalX = p.LocalX
	c.LocalY = p.LocalY
	c.Color = dimColor(c.Color)

	zone.Stack = append(zone.Stack, uint64(item))
	zone.Height += c.Height

	if anchor, ok := ecs.Get(w, zoneEnt, component.TransformComponent.Kind()); ok {
		if t, ok := ecs.Get(w, item, component.TransformComponent.Kind()); ok {
			t.X = anchor.X + p.LocalX
			t.Y = anchor.Y + p.LocalY
			t.Rotation = 0
			t.ScaleX, t.ScaleY = 1, 1
		}
	}
	return p, true
}

// dimColor halves the brightness of a stacked carryable.
func dimColor(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: c.A}
}
