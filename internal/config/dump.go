package config

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Dump writes the settings in the given file format (yaml, json or toml).
// The output is accepted by LoadFile, so it can seed a config file.
func Dump(s Settings, format string, w io.Writer) error {
	vals := s.Values()
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		b, err = yaml.Marshal(vals)
	case "json":
		b, err = json.MarshalIndent(vals, "", "  ")
		b = append(b, '\n')
	case "toml":
		b, err = toml.Marshal(vals)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
