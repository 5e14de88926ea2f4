package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/prefabs"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging and physics overlay")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	sceneName := flag.String("scene", prefabs.DefaultScene, "scene file in prefabs/")
	seed := flag.Int64("seed", 1, "random seed")
	watch := flag.Bool("watch", true, "hot reload prefabs/ on change")
	flag.Parse()

	logger, err := common.NewLogger(*debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("boxsorter")
	ebiten.SetTPS(ticksPerSecond)

	game, err := NewGame(*sceneName, *seed, *debug, *watch, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer game.Close()

	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("game exited", zap.Error(err))
	}
}
