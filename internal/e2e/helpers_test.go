package e2e

import (
    "bytes"
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "sync"
    "testing"
    "time"

    "llmapi/internal/httpapi"
    "llmapi/internal/ollama"
    "llmapi/internal/relay"
    "llmapi/pkg/types"
)

// fakeOllama is a scripted stand-in for the Ollama REST API.
type fakeOllama struct {
    mu       sync.Mutex
    models   []string
    reply    string
    chunks   []string
    down     bool
    // hold blocks streaming after the chunks until the client goes away.
    hold     bool
    gone     chan struct{}
    requests []ollama.ChatRequest
}

func (f *fakeOllama) handler(t *testing.T) http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
        if f.down {
            http.Error(w, "unavailable", http.StatusServiceUnavailable)
            return
        }
        var res ollama.ListResponse
        for _, m := range f.models {
            res.Models = append(res.Models, ollama.ModelInfo{Name: m})
        }
        _ = json.NewEncoder(w).Encode(res)
    })
    mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
        var req ollama.ChatRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            t.Errorf("decode chat request: %v", err)
            return
        }
        f.mu.Lock()
        f.requests = append(f.requests, req)
        f.mu.Unlock()
        if f.down {
            w.WriteHeader(http.StatusInternalServerError)
            _, _ = w.Write([]byte(`{"error":"model runner crashed"}`))
            return
        }
        if !req.Stream {
            _ = json.NewEncoder(w).Encode(ollama.ChatResponse{Model: req.Model, Message: &types.Message{Role: types.RoleAssistant, Content: f.reply}, Done: true})
            return
        }
        fl, _ := w.(http.Flusher)
        enc := json.NewEncoder(w)
        for _, c := range f.chunks {
            _ = enc.Encode(ollama.ChatResponse{Model: req.Model, Message: &types.Message{Role: types.RoleAssistant, Content: c}})
            if fl != nil { fl.Flush() }
        }
        if f.hold {
            <-r.Context().Done()
            close(f.gone)
            return
        }
        _ = enc.Encode(ollama.ChatResponse{Model: req.Model, Message: &types.Message{Role: types.RoleAssistant}, Done: true, DoneReason: "stop"})
    })
    return mux
}

func (f *fakeOllama) lastRequest() ollama.ChatRequest {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.requests[len(f.requests)-1]
}

// newStack wires the real client, relay and router against backend.
func newStack(t *testing.T, backend *fakeOllama, model string) *httptest.Server {
    t.Helper()
    ol := httptest.NewServer(backend.handler(t))
    t.Cleanup(ol.Close)
    svc := relay.New(ollama.New(ol.URL, 2*time.Second), model)
    srv := httptest.NewServer(httpapi.NewMux(svc, httpapi.Options{Environment: "test", Metrics: true}))
    t.Cleanup(srv.Close)
    return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
    t.Helper()
    req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
    if err != nil { t.Fatalf("new req: %v", err) }
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("do req: %v", err) }
    body, _ := io.ReadAll(resp.Body)
    _ = resp.Body.Close()
    return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
    t.Helper()
    req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
    if err != nil { t.Fatalf("new req: %v", err) }
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("do req: %v", err) }
    body, _ := io.ReadAll(resp.Body)
    _ = resp.Body.Close()
    return resp, body
}
