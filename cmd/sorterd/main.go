// Command sorterd runs the box sorting simulation without a window. It records
// deposits to SQLite, appends events to a compressed log and streams snapshots
// to websocket observers.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/common"
	"github.com/milk9111/boxsorter/prefabs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := defaultConfig()
	flag.StringVar(&cfg.Scene, "scene", envOr("SORTER_SCENE", prefabs.DefaultScene), "scene file in prefabs/")
	flag.Int64Var(&cfg.Seed, "seed", envInt("SORTER_SEED", 1), "random seed")
	flag.IntVar(&cfg.TPS, "tps", int(envInt("SORTER_TPS", 60)), "ticks per second, 0 runs unthrottled")
	flag.Uint64Var(&cfg.Ticks, "ticks", uint64(envInt("SORTER_TICKS", 0)), "stop after this many ticks, 0 runs until interrupted")
	flag.StringVar(&cfg.DBPath, "db", envOr("SORTER_DB", "data/ledger.db"), "SQLite ledger path, empty disables")
	flag.StringVar(&cfg.EventsDir, "events", envOr("SORTER_EVENTS", "data/events"), "event log directory, empty disables")
	flag.StringVar(&cfg.ObserveAddr, "observe", envOr("SORTER_OBSERVE", ""), "websocket listen address, e.g. 127.0.0.1:8090")
	flag.IntVar(&cfg.SnapshotEvery, "snapshot-every", int(envInt("SORTER_SNAPSHOT_EVERY", 6)), "ticks between observer snapshots")
	flag.BoolVar(&cfg.Debug, "debug", envBool("SORTER_DEBUG", false), "enable debug logging")
	flag.BoolVar(&cfg.Watch, "watch", envBool("SORTER_WATCH", false), "hot reload prefabs/ on change")
	flag.Parse()

	logger, err := common.NewLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	summary, err := r.Run(ctx)
	if cerr := r.Close(); cerr != nil {
		logger.Warn("shutdown", zap.Error(cerr))
	}
	if err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
	summary.log(logger)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return b
}
