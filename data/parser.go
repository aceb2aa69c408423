package data

import (
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// ParseJSONOrYAML is used in the same way as json.Unmarshal, but if the data is YAML and not
// JSON, it will convert the YAML to JSON and then parse it as JSON. Going through JSON means the
// json struct tags of the target decide field names for both formats.
func ParseJSONOrYAML(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err == nil {
		return nil
	}
	var rawStructure any
	if err := yaml.Unmarshal(data, &rawStructure); err != nil {
		return err
	}
	normalized, err := yamlToJSONCompatible(rawStructure)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

// yamlToJSONCompatible rewrites the generic maps produced by the YAML decoder so that every key
// is a string.
func yamlToJSONCompatible(data any) (any, error) {
	switch data := data.(type) {
	case []any:
		out := make([]any, 0, len(data))
		for _, v := range data {
			v1, err := yamlToJSONCompatible(v)
			if err != nil {
				return nil, err
			}
			out = append(out, v1)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(data))
		for k, v := range data {
			v1, err := yamlToJSONCompatible(v)
			if err != nil {
				return nil, err
			}
			out[k] = v1
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(data))
		for k, v := range data {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("YAML data contained a map key of type %T; only string keys are allowed", k)
			}
			v1, err := yamlToJSONCompatible(v)
			if err != nil {
				return nil, err
			}
			out[key] = v1
		}
		return out, nil
	default:
		return data, nil
	}
}
