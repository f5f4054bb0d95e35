package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok { t.Fatal("runtime.Caller failed") }
	// this file: <root>/cmd/llmapi/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() { t.Skip("blackbox test builds the binary; skipped in -short mode") }
	bin := filepath.Join(t.TempDir(), "llmapi")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/llmapi")
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil { t.Fatalf("go build failed: %v\n%s", err, string(out)) }
	return bin
}

func startServer(t *testing.T, bin string, port int, extra ...string) string {
	t.Helper()
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	args := append([]string{"--host", "127.0.0.1", "--port", fmt.Sprint(port), "--mock", "--model", "mock-model", "--env-file", ""}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "API_RELOAD=false", "API_DEBUG=false", "LOG_FORMAT=json")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil { t.Fatalf("start server: %v", err) }
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK { break }
		}
		if time.Now().After(deadline) { t.Fatalf("server did not become healthy in time") }
		time.Sleep(50 * time.Millisecond)
	}
	return base
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do: %v", err) }
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil { t.Fatalf("new req: %v", err) }
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do: %v", err) }
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	base := startServer(t, bin, findFreePort(t))

	resp, body := get(t, base+"/")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/ %d %s", resp.StatusCode, string(body)) }
	var root struct{ Message, Model string }
	if err := json.Unmarshal(body, &root); err != nil { t.Fatalf("/ json: %v body=%s", err, string(body)) }
	if root.Message != "LLM API with Ollama" || root.Model != "mock-model" { t.Fatalf("/ body=%s", string(body)) }

	resp, body = get(t, base+"/models")
	if resp.StatusCode != http.StatusOK { t.Fatalf("/models %d %s", resp.StatusCode, string(body)) }
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("/models content-type=%s", ct) }

	resp, body = postJSON(t, base+"/generate", []byte(`{"prompt":"hello"}`))
	if resp.StatusCode != http.StatusOK { t.Fatalf("/generate %d %s", resp.StatusCode, string(body)) }
	var gen struct{ Text string `json:"text"` }
	if err := json.Unmarshal(body, &gen); err != nil { t.Fatalf("/generate json: %v", err) }
	if gen.Text != "[mock-model] hello" { t.Fatalf("text=%q", gen.Text) }

	resp, body = postJSON(t, base+"/generate", []byte(`{"prompt":"hello there","stream":true}`))
	if resp.StatusCode != http.StatusOK { t.Fatalf("/generate stream %d %s", resp.StatusCode, string(body)) }
	if string(body) != "[mock-model] hello there" { t.Fatalf("stream body=%q", string(body)) }

	resp, body = postJSON(t, base+"/generate", []byte(`{"system":"x"}`))
	if resp.StatusCode != http.StatusUnprocessableEntity { t.Fatalf("expected 422, got %d, body=%s", resp.StatusCode, string(body)) }
}

func TestBlackbox_InvalidConfigExits(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "--env-file", "", "--ollama-host", "not a url")
	out, err := cmd.CombinedOutput()
	if err == nil { t.Fatalf("expected non-zero exit, output=%s", string(out)) }
	if !strings.Contains(string(out), "ollama_host") { t.Fatalf("expected error naming ollama_host, got %s", string(out)) }
}
