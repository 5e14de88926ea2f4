package render

import "github.com/jakecoffman/cp"

// Camera maps Y-up world units to screen pixels. X/Y is the world point drawn
// at the screen center.
type Camera struct {
	X       float64
	Y       float64
	Zoom    float64
	ScreenW int
	ScreenH int
}

func (c Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// ToScreen converts a world position to pixel coordinates.
func (c Camera) ToScreen(v cp.Vector) (float64, float64) {
	z := c.zoom()
	sx := (v.X-c.X)*z + float64(c.ScreenW)/2
	sy := float64(c.ScreenH)/2 - (v.Y-c.Y)*z
	return sx, sy
}

// Scale converts a world length to pixels.
func (c Camera) Scale(v float64) float64 {
	return v * c.zoom()
}
