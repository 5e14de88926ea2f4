package prefabs

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Files holds the shipped scenes, rule scripts and schemas. Paths are
// relative to the prefabs directory.
//
//go:embed *.yaml scripts/*.tengo schema/*.json
var Files embed.FS

// Dir is where on-disk overrides are looked up, relative to the working
// directory.
var Dir = "prefabs"

// Load reads a scene file. A copy under Dir wins over the embedded one so
// edits apply without rebuilding.
func Load(name string) ([]byte, error) {
	return read(prefabPath(name))
}

// LoadScript reads a rule script by bare name or by any prefabs-relative path.
func LoadScript(name string) ([]byte, error) {
	p := prefabPath(name)
	if !strings.HasPrefix(p, "scripts/") {
		p = path.Join("scripts", p)
	}
	return read(p)
}

func read(rel string) ([]byte, error) {
	if rel == "" {
		return nil, fs.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(Dir, filepath.FromSlash(rel)))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return Files.ReadFile(rel)
}

func prefabPath(name string) string {
	s := filepath.ToSlash(name)
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "prefabs/")
	return s
}
