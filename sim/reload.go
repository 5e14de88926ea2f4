package sim

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/prefabs"
)

// Reload reacts to a changed prefab file. Rule scripts are recompiled; the
// running scene file is re-read and its tuning applied. Other files are ignored.
func (s *Sim) Reload(scene string, ch prefabs.Change) error {
	base := filepath.Base(ch.Path)
	switch ch.Kind {
	case prefabs.ChangeRule:
		return s.ReloadRule(base)
	case prefabs.ChangeScene:
		if base != filepath.Base(scene) {
			s.log.Debug("ignoring unrelated prefab change", zap.String("file", ch.Path))
			return nil
		}
		spec, err := prefabs.LoadScene(scene)
		if err != nil {
			return fmt.Errorf("sim: reload %s: %w", scene, err)
		}
		s.ApplyTuning(spec)
		return nil
	}
	return nil
}
