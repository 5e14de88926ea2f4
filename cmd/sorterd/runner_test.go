package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/milk9111/boxsorter/eventlog"
)

func TestRunnerRecordsRun(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig()
	cfg.TPS = 0
	cfg.Ticks = 60 * 30
	cfg.DBPath = filepath.Join(dir, "ledger.db")
	cfg.EventsDir = filepath.Join(dir, "events")

	r, err := newRunner(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, cfg.Ticks, sum.Ticks)
	require.Positive(t, sum.Spawned)

	total := 0
	for _, n := range sum.ZoneTotals {
		total += n
	}
	require.Equal(t, sum.Deposits, total)

	path := r.events.Path()
	require.NoError(t, r.Close())

	entries, err := eventlog.ReadEntries(path)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	require.Equal(t, "agent.state_changed", entries[0].Type)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	cfg := defaultConfig()
	cfg.TPS = 0
	cfg.DBPath = ""
	cfg.EventsDir = ""

	r, err := newRunner(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sum, err := r.Run(ctx)
	require.NoError(t, err)
	require.Positive(t, sum.Ticks)
	require.Contains(t, sum.ZoneTotals, "red_bin")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SORTER_TEST_STR", "warehouse.yaml")
	t.Setenv("SORTER_TEST_INT", "12")
	t.Setenv("SORTER_TEST_BAD", "twelve")
	t.Setenv("SORTER_TEST_BOOL", "true")

	require.Equal(t, "warehouse.yaml", envOr("SORTER_TEST_STR", "x"))
	require.Equal(t, "x", envOr("SORTER_TEST_MISSING", "x"))
	require.Equal(t, int64(12), envInt("SORTER_TEST_INT", 1))
	require.Equal(t, int64(1), envInt("SORTER_TEST_BAD", 1))
	require.True(t, envBool("SORTER_TEST_BOOL", false))
	require.False(t, envBool("SORTER_TEST_MISSING", false))
}
