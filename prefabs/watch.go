package prefabs

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchSettle = 100 * time.Millisecond

type ChangeKind int

const (
	ChangeOther ChangeKind = iota
	ChangeScene
	ChangeRule
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeScene:
		return "scene"
	case ChangeRule:
		return "rule"
	}
	return "other"
}

// Change is a prefab file that was written, created, renamed or removed.
type Change struct {
	Path string
	Kind ChangeKind
}

// Classify maps a prefab path to the kind of reload it needs.
func Classify(path string) ChangeKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ChangeScene
	case ".tengo":
		return ChangeRule
	}
	return ChangeOther
}

// Watcher reports scene and rule files that changed on disk. A burst of
// writes to one file is reported once, after it has been quiet for
// watchSettle. Events and Errors are closed once the watcher stops.
type Watcher struct {
	fs      *fsnotify.Watcher
	Events  chan Change
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return nil, err
		}
	}

	w := &Watcher{
		fs:      fs,
		Events:  make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fs.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	pending := make(map[string]time.Time)
	settle := time.NewTimer(watchSettle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if Classify(ev.Name) == ChangeOther {
				continue
			}
			pending[ev.Name] = time.Now()
			settle.Reset(watchSettle)
		case <-settle.C:
			now := time.Now()
			for path, at := range pending {
				if now.Sub(at) < watchSettle {
					continue
				}
				delete(pending, path)
				select {
				case w.Events <- Change{Path: path, Kind: Classify(path)}:
				case <-w.closeCh:
					return
				}
			}
			if len(pending) > 0 {
				settle.Reset(watchSettle)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}
