package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/ecs/render"
	"github.com/milk9111/boxsorter/prefabs"
	"github.com/milk9111/boxsorter/sim"
)

const (
	baseWidth      = 1280
	baseHeight     = 720
	ticksPerSecond = 60
	pixelsPerUnit  = 40
)

var background = color.RGBA{R: 24, G: 24, B: 28, A: 255}

type Game struct {
	scene   string
	sim     *sim.Sim
	watcher *prefabs.Watcher
	log     *zap.Logger
	cam     render.Camera

	debug  bool
	paused bool
}

func NewGame(scene string, seed int64, debug, watch bool, log *zap.Logger) (*Game, error) {
	spec, err := prefabs.LoadScene(scene)
	if err != nil {
		return nil, err
	}
	s, err := sim.New(spec, sim.Options{Seed: seed, Log: log})
	if err != nil {
		return nil, err
	}

	g := &Game{
		scene: scene,
		sim:   s,
		log:   log,
		debug: debug,
		cam: render.Camera{
			Y:       4,
			Zoom:    pixelsPerUnit,
			ScreenW: baseWidth,
			ScreenH: baseHeight,
		},
	}

	if watch {
		g.watcher = startWatcher(log)
	}
	return g, nil
}

// startWatcher watches the on-disk prefabs when running from the repo root.
func startWatcher(log *zap.Logger) *prefabs.Watcher {
	var dirs []string
	for _, dir := range []string{"prefabs", "prefabs/scripts"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return nil
	}
	w, err := prefabs.NewWatcher(dirs...)
	if err != nil {
		log.Warn("prefab hot reload disabled", zap.Error(err))
		return nil
	}
	log.Info("watching prefabs", zap.Strings("dirs", dirs))
	return w
}

func (g *Game) Close() {
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
}

func (g *Game) Update() error {
	g.pollReload()

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.debug = !g.debug
	}
	if g.paused && !inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		return nil
	}

	g.sim.Step(1.0 / ticksPerSecond)
	return nil
}

func (g *Game) pollReload() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case ch, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			if err := g.sim.Reload(g.scene, ch); err != nil {
				g.log.Warn("prefab reload failed", zap.String("file", ch.Path), zap.Stringer("kind", ch.Kind), zap.Error(err))
			}
		case err, ok := <-g.watcher.Errors:
			if ok {
				g.log.Warn("prefab watcher error", zap.Error(err))
			}
		default:
			return
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	render.DrawScene(g.sim.World(), g.cam, screen)
	if g.debug {
		render.DrawPhysicsDebug(g.sim.Physics().Space(), g.cam, screen)
	}

	status := fmt.Sprintf("Tick: %d    FPS: %.2f    Spawned: %d", g.sim.World().Tick(), ebiten.ActualFPS(), g.sim.Spawner().Spawned())
	if g.paused {
		status += "    [paused, . to step]"
	}
	ebitenutil.DebugPrint(screen, status)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
