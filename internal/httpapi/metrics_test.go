package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_LabelsByRoutePatternAndStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/models/{name}", http.MethodGet, "418"))
	for _, name := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/models/"+name, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("status=%d", rr.Code)
		}
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/models/{name}", http.MethodGet, "418"))
	if after-before != 3 {
		t.Fatalf("want 3 requests under the route pattern, got %v", after-before)
	}
	if n := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/models/a", http.MethodGet, "418")); n != 0 {
		t.Fatalf("raw path leaked into labels: %v", n)
	}
	if g := testutil.ToFloat64(httpInflight); g != 0 {
		t.Fatalf("inflight gauge not restored: %v", g)
	}
}

func TestMetricsMiddleware_UnmatchedPathFallsBackToURL(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/plain", http.MethodGet, "200"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))
	if d := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/plain", http.MethodGet, "200")) - before; d != 1 {
		t.Fatalf("implicit 200 not counted: %v", d)
	}
}

func TestMetricsMiddleware_KeepsFlusher(t *testing.T) {
	var flushed bool
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Errorf("wrapped writer lost http.Flusher")
			return
		}
		_, _ = w.Write([]byte("chunk"))
		f.Flush()
		flushed = true
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{}`)))
	if !flushed || !rr.Flushed {
		t.Fatalf("flush did not reach the recorder")
	}
}
