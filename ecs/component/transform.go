package component

type Transform struct {
	X        float64
	Y        float64
	ScaleX   float64
	ScaleY   float64
	Rotation float64
}

// Facing is -1 when the entity is mirrored along X, 1 otherwise.
func (t *Transform) Facing() float64 {
	if t != nil && t.ScaleX < 0 {
		return -1
	}
	return 1
}

// Face mirrors the transform toward dir without changing its magnitude.
func (t *Transform) Face(dir float64) {
	if t == nil || dir == 0 {
		return
	}
	sx := t.ScaleX
	if sx < 0 {
		sx = -sx
	}
	if sx == 0 {
		sx = 1
	}
	if dir < 0 {
		sx = -sx
	}
	t.ScaleX = sx
}

var TransformComponent = NewComponent[Transform]()
