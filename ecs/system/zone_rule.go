package system

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/boxsorter/ecs/component"
)

// ScriptedZoneRule runs a tengo script to decide whether a zone takes an
// item. The script sees kind, width, height, stack_len and stack_height and
// must assign the global accept.
type ScriptedZoneRule struct {
	name     string
	compiled *tengo.Compiled
}

var zoneRuleInputs = map[string]interface{}{
	"kind":         "",
	"width":        0.0,
	"height":       0.0,
	"stack_len":    0,
	"stack_height": 0.0,
	"accept":       false,
}

func NewScriptedZoneRule(name string, src []byte) (*ScriptedZoneRule, error) {
	script := tengo.NewScript(src)
	for k, v := range zoneRuleInputs {
		if err := script.Add(k, v); err != nil {
			return nil, fmt.Errorf("zone rule %s: add %s: %w", name, k, err)
		}
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("zone rule %s: compile: %w", name, err)
	}
	return &ScriptedZoneRule{name: name, compiled: compiled}, nil
}

func (r *ScriptedZoneRule) Name() string { return r.name }

func (r *ScriptedZoneRule) Accept(zone *component.DropZone, item *component.Carryable) (bool, error) {
	if r == nil || r.compiled == nil {
		return false, fmt.Errorf("zone rule: not compiled")
	}
	if zone == nil || item == nil {
		return false, nil
	}
	inputs := map[string]interface{}{
		"kind":         string(item.Kind),
		"width":        item.Width,
		"height":       item.Height,
		"stack_len":    len(zone.Stack),
		"stack_height": zone.Height,
		"accept":       false,
	}
	for k, v := range inputs {
		if err := r.compiled.Set(k, v); err != nil {
			return false, fmt.Errorf("zone rule %s: set %s: %w", r.name, k, err)
		}
	}
	if err := r.compiled.Run(); err != nil {
		return false, fmt.Errorf("zone rule %s: run: %w", r.name, err)
	}
	return r.compiled.Get("accept").Bool(), nil
}
