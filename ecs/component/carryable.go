package component

import "image/color"

// CarryableKind is the type tag drop zones filter on.
type CarryableKind string

// Carryable is an object agents pick up and stack. Entity references are raw
// ecs.Entity values; zero means none.
type Carryable struct {
	Kind   CarryableKind
	Color  color.RGBA
	Width  float64
	Height float64

	// Resting is maintained by the physics system.
	Resting bool

	Holder    uint64
	ClaimedBy uint64

	Zone       uint64
	StackIndex int
	LocalX     float64
	LocalY     float64
}

func (c *Carryable) Held() bool {
	return c != nil && c.Holder != 0
}

func (c *Carryable) Stacked() bool {
	return c != nil && c.Zone != 0
}

// AtRest reports whether the carryable is loose on the ground and not moving.
func (c *Carryable) AtRest() bool {
	return c != nil && c.Resting && !c.Held() && !c.Stacked()
}

// ClaimableBy reports whether agent may target the carryable.
func (c *Carryable) ClaimableBy(agent uint64) bool {
	return c != nil && (c.ClaimedBy == 0 || c.ClaimedBy == agent)
}

// TryClaim marks agent as the only one allowed to target the carryable.
func (c *Carryable) TryClaim(agent uint64) bool {
	if !c.ClaimableBy(agent) {
		return false
	}
	c.ClaimedBy = agent
	return true
}

// Release drops agent's claim; claims held by others are left untouched.
func (c *Carryable) Release(agent uint64) {
	if c != nil && c.ClaimedBy == agent {
		c.ClaimedBy = 0
	}
}

var CarryableComponent = NewComponent[Carryable]()
