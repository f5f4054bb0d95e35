package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a flat configuration file based on its extension and returns
// its values keyed by lower-cased setting name. Values are rendered as strings
// so they go through the same parsing as environment variables.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("key %q: nested values are not supported", k)
		case nil:
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}
