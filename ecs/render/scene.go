package render

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

const (
	agentWidth  = 0.8
	agentHeight = 1.6
	zoneWidth   = 1.4
)

// DrawScene draws drop zones, carryables and agents as flat rectangles.
func DrawScene(w *ecs.World, cam Camera, screen *ebiten.Image) {
	if w == nil || screen == nil {
		return
	}

	ecs.ForEach2(w, component.DropZoneComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, z *component.DropZone, t *component.Transform) {
		x, y := cam.ToScreen(cp.Vector{X: t.X - zoneWidth/2, Y: t.Y})
		vector.StrokeRect(screen, float32(x), float32(y), float32(cam.Scale(zoneWidth)), 2, 1, colornames.Lightgrey, false)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s (%d)", z.Name, len(z.Stack)), int(x), int(y)+4)
	})

	ecs.ForEach2(w, component.CarryableComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, c *component.Carryable, t *component.Transform) {
		drawBox(screen, cam, t.X, t.Y, c.Width, c.Height, c.Color)
	})

	ecs.ForEach2(w, component.AIStateComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, st *component.AIState, t *component.Transform) {
		drawBox(screen, cam, t.X, t.Y, agentWidth, agentHeight, colornames.Steelblue)
		x, y := cam.ToScreen(cp.Vector{X: t.X - agentWidth/2, Y: t.Y + agentHeight/2})
		label := string(st.Current)
		if tag, ok := ecs.Get(w, e, component.AgentTagComponent.Kind()); ok && tag.Name != "" {
			label = tag.Name + ": " + label
		}
		ebitenutil.DebugPrintAt(screen, label, int(x), int(y)-16)
	})
}

func drawBox(screen *ebiten.Image, cam Camera, cx, cy, width, height float64, clr color.Color) {
	x, y := cam.ToScreen(cp.Vector{X: cx - width/2, Y: cy + height/2})
	vector.FillRect(screen, float32(x), float32(y), float32(cam.Scale(width)), float32(cam.Scale(height)), clr, false)
}
