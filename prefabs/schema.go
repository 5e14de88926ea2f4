package prefabs

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const sceneSchemaPath = "schema/scene.schema.json"

var (
	sceneSchemaOnce sync.Once
	sceneSchema     *jsonschema.Schema
	sceneSchemaErr  error
)

func compiledSceneSchema() (*jsonschema.Schema, error) {
	sceneSchemaOnce.Do(func() {
		src, err := Files.ReadFile(sceneSchemaPath)
		if err != nil {
			sceneSchemaErr = fmt.Errorf("prefabs: read scene schema: %w", err)
			return
		}
		sceneSchema, sceneSchemaErr = jsonschema.CompileString(sceneSchemaPath, string(src))
		if sceneSchemaErr != nil {
			sceneSchemaErr = fmt.Errorf("prefabs: compile scene schema: %w", sceneSchemaErr)
		}
	})
	return sceneSchema, sceneSchemaErr
}

// ValidateScene checks raw scene YAML against the embedded JSON schema.
func ValidateScene(data []byte) error {
	schema, err := compiledSceneSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("prefabs: unmarshal scene: %w", err)
	}
	// Round-trip through JSON so numbers and maps have the shapes the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("prefabs: normalize scene: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("prefabs: normalize scene: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return nil
}
