package component

// DropZone accepts carryables of listed kinds and stacks them on its anchor
// (the zone entity's Transform).
type DropZone struct {
	Name     string
	Accepted map[CarryableKind]struct{}
	// Rule is an optional script name narrowing acceptance further.
	Rule string

	// Stack holds raw ecs.Entity values, bottom first. Append-only.
	Stack  []uint64
	Height float64
}

func NewDropZone(name string, kinds ...CarryableKind) DropZone {
	z := DropZone{Name: name, Accepted: make(map[CarryableKind]struct{}, len(kinds))}
	for _, k := range kinds {
		z.Accepted[k] = struct{}{}
	}
	return z
}

// AcceptsKind reports whether kind is in the accepted set.
func (z *DropZone) AcceptsKind(kind CarryableKind) bool {
	if z == nil {
		return false
	}
	_, ok := z.Accepted[kind]
	return ok
}

// NextLocalY is where the next carryable's local origin goes.
func (z *DropZone) NextLocalY() float64 {
	if z == nil {
		return 0
	}
	return z.Height
}

var DropZoneComponent = NewComponent[DropZone]()
