package prefabs

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScene wraps every semantic problem found in a scene file.
var ErrInvalidScene = errors.New("prefabs: invalid scene")

// DefaultScene is the embedded scene the hosts load unless told otherwise.
const DefaultScene = "scene.yaml"

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

type SceneSpec struct {
	Name       string                   `yaml:"name"`
	World      WorldSpec                `yaml:"world"`
	Kinds      map[string]KindSpec      `yaml:"kinds"`
	DropZones  []DropZoneSpec           `yaml:"drop_zones"`
	Agents     []AgentSpec              `yaml:"agents"`
	Spawner    SpawnerSpec              `yaml:"spawner"`
	Animations map[string]AnimationSpec `yaml:"animations"`
}

type WorldSpec struct {
	Gravity    float64 `yaml:"gravity"`
	GroundY    float64 `yaml:"ground_y"`
	MinX       float64 `yaml:"min_x"`
	MaxX       float64 `yaml:"max_x"`
	WallHeight float64 `yaml:"wall_height"`
	Iterations int     `yaml:"iterations"`
}

type KindSpec struct {
	Color    YAMLColor `yaml:"color"`
	Width    float64   `yaml:"width"`
	Height   float64   `yaml:"height"`
	Mass     float64   `yaml:"mass"`
	Friction float64   `yaml:"friction"`
}

type DropZoneSpec struct {
	Name      string        `yaml:"name"`
	Transform TransformSpec `yaml:"transform"`
	Accepts   []string      `yaml:"accepts"`
	Rule      string        `yaml:"rule"`
}

type AgentSpec struct {
	Name          string        `yaml:"name"`
	Transform     TransformSpec `yaml:"transform"`
	SearchSpeed   float64       `yaml:"search_speed"`
	FoundSpeed    float64       `yaml:"found_speed"`
	DepositSpeed  float64       `yaml:"deposit_speed"`
	Idle          RangeSpec     `yaml:"idle"`
	SensingRadius float64       `yaml:"sensing_radius"`
	HalfWidth     float64       `yaml:"half_width"`
	Grip          Vec2Spec      `yaml:"grip"`
}

type SpawnerSpec struct {
	Interval RangeSpec `yaml:"interval"`
	Area     AreaSpec  `yaml:"area"`
	Kinds    []string  `yaml:"kinds"`
	MaxLoose int       `yaml:"max_loose"`
}

type AnimationSpec struct {
	Duration float64 `yaml:"duration"`
	Loop     bool    `yaml:"loop"`
}

type TransformSpec struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	ScaleX   float64 `yaml:"scale_x"`
	ScaleY   float64 `yaml:"scale_y"`
	Rotation float64 `yaml:"rotation"`
}

type RangeSpec struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type Vec2Spec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type AreaSpec struct {
	Min Vec2Spec `yaml:"min"`
	Max Vec2Spec `yaml:"max"`
}

// LoadScene reads, schema-checks and decodes a scene prefab.
func LoadScene(name string) (*SceneSpec, error) {
	data, err := Load(name)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load %s: %w", name, err)
	}
	return ParseScene(data)
}

// ParseScene validates raw YAML against the scene schema and decodes it.
func ParseScene(data []byte) (*SceneSpec, error) {
	if err := ValidateScene(data); err != nil {
		return nil, err
	}
	var spec SceneSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal scene: %w", err)
	}
	if err := spec.check(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// check covers the cross references the schema cannot express.
func (s *SceneSpec) check() error {
	for _, z := range s.DropZones {
		for _, k := range z.Accepts {
			if _, ok := s.Kinds[k]; !ok {
				return fmt.Errorf("%w: drop zone %s accepts unknown kind %q", ErrInvalidScene, z.Name, k)
			}
		}
	}
	for _, k := range s.Spawner.Kinds {
		if _, ok := s.Kinds[k]; !ok {
			return fmt.Errorf("%w: spawner uses unknown kind %q", ErrInvalidScene, k)
		}
	}
	for _, a := range s.Agents {
		if a.Idle.Max < a.Idle.Min {
			return fmt.Errorf("%w: agent %s idle max below min", ErrInvalidScene, a.Name)
		}
	}
	if s.Spawner.Interval.Max < s.Spawner.Interval.Min {
		return fmt.Errorf("%w: spawner interval max below min", ErrInvalidScene)
	}
	return nil
}

// KindNames returns the declared kinds in sorted order.
func (s *SceneSpec) KindNames() []string {
	names := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Rules returns the distinct rule scripts referenced by drop zones.
func (s *SceneSpec) Rules() []string {
	seen := map[string]bool{}
	var out []string
	for _, z := range s.DropZones {
		if z.Rule != "" && !seen[z.Rule] {
			seen[z.Rule] = true
			out = append(out, z.Rule)
		}
	}
	return out
}

// YAMLColor accepts an x/image/colornames name or #rrggbb[aa].
type YAMLColor struct {
	color.RGBA
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	c.RGBA = parsed
	return nil
}

func ParseColor(v string) (color.RGBA, error) {
	if named, ok := colornames.Map[strings.ToLower(strings.TrimSpace(v))]; ok {
		return named, nil
	}

	s := strings.TrimPrefix(strings.TrimSpace(v), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color format: %s", v)
	}

	parse := func(start int) (uint8, error) {
		n, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(n), err
	}

	var out [4]uint8
	out[3] = 255
	for i := 0; i < len(s)/2; i++ {
		n, err := parse(i * 2)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color format: %s", v)
		}
		out[i] = n
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: out[3]}, nil
}
