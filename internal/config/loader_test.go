package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFileYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "ollama_host: http://gpu:11434\nAPI_PORT: 9999\nollama_timeout: 30\nenable_metrics: false\n")
	vals, err := LoadFile(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if vals["ollama_host"] != "http://gpu:11434" || vals["api_port"] != "9999" || vals["ollama_timeout"] != "30" || vals["enable_metrics"] != "false" {
		t.Fatalf("unexpected values: %+v", vals)
	}
}

func TestLoadFileJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"ollama_model":"mistral","api_port":7070,"api_debug":true}`)
	vals, err := LoadFile(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if vals["ollama_model"] != "mistral" || vals["api_port"] != "7070" || vals["api_debug"] != "true" {
		t.Fatalf("unexpected values: %+v", vals)
	}
}

func TestLoadFileTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "environment=\"prod\"\napi_port=8081\n")
	vals, err := LoadFile(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if vals["environment"] != "prod" || vals["api_port"] != "8081" {
		t.Fatalf("unexpected values: %+v", vals)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := LoadFile(p); err == nil { t.Fatalf("expected unsupported extension error") }
	p = writeTempFile(t, d, "nested.yaml", "ollama:\n  host: x\n")
	if _, err := LoadFile(p); err == nil { t.Fatalf("expected nested value error") }
}
