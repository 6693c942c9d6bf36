package planner

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/navigator/internal/model"
)

// LoadFile reads a plan from a .json, .yaml or .yml file. Files without a
// known extension are parsed as YAML, which also accepts JSON.
func LoadFile(path string) (model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Plan{}, eris.Wrapf(err, "planner: read %s", path)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Parse decodes a plan document.
func Parse(data []byte, isJSON bool) (model.Plan, error) {
	var plan model.Plan
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&plan); err != nil {
			return model.Plan{}, eris.Wrap(err, "planner: decode json plan")
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&plan); err != nil {
			return model.Plan{}, eris.Wrap(err, "planner: decode yaml plan")
		}
	}

	if len(plan.Steps) == 0 {
		return model.Plan{}, eris.New("planner: plan has no steps")
	}
	for i, s := range plan.Steps {
		if strings.TrimSpace(s.Action) == "" {
			return model.Plan{}, eris.Errorf("planner: step %d has no action", i+1)
		}
	}
	return plan, nil
}
