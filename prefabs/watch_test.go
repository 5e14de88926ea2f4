package prefabs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsSettledSceneWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	target := filepath.Join(dir, "scene.yaml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("name: x\n"), 0o644))
	}

	select {
	case ch := <-w.Events:
		require.Equal(t, Change{Path: target, Kind: ChangeScene}, ch)
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}

	select {
	case ch := <-w.Events:
		t.Fatalf("burst should be reported once, got extra %+v", ch)
	case <-time.After(3 * watchSettle):
	}
}

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events
	require.False(t, ok)
}

func TestClassify(t *testing.T) {
	cases := map[string]ChangeKind{
		"prefabs/scene.yaml":             ChangeScene,
		"prefabs/alt.YML":                ChangeScene,
		"prefabs/scripts/capacity.tengo": ChangeRule,
		"prefabs/notes.txt":              ChangeOther,
		"prefabs/schema/scene.json":      ChangeOther,
	}
	for path, want := range cases {
		require.Equal(t, want, Classify(path), path)
	}
	require.Equal(t, "rule", ChangeRule.String())
}
