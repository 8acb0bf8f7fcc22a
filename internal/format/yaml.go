package format

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes a YAML document using the json field names.
func WriteYAML(w io.Writer, v any) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlable(x)); err != nil {
		return err
	}
	return enc.Close()
}

// yamlable converts json.Number leaves so yaml emits them unquoted.
func yamlable(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = yamlable(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = yamlable(t[k])
		}
		return t
	default:
		return v
	}
}
