package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmapi/internal/relay"
	"llmapi/pkg/types"
)

const rootMessage = "LLM API with Ollama"

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Model() string
	HealthCheck(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, p relay.Params) (string, error)
	GenerateStream(ctx context.Context, p relay.Params) <-chan relay.Fragment
}

type api struct {
	svc  Service
	opts Options
}

// NewMux builds the HTTP handler serving /, /health, /models and /generate.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.withDefaults()
	a := &api{svc: svc, opts: opts}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Metrics {
		r.Use(MetricsMiddleware)
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID", "X-Log-Level"},
			ExposedHeaders: []string{"X-Request-ID"},
		}))
	}
	// Compression for JSON responses only; event streams pass through untouched.
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", a.root)
	r.Get("/health", a.health)
	r.Get("/models", a.models)
	r.Post("/generate", a.generate)

	if opts.Metrics {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}
	if opts.Debug {
		r.Mount("/debug", middleware.Profiler())
	}
	MountSwagger(r)

	return r
}

// root godoc
// @Summary      Service banner
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.RootResponse
// @Router       / [get]
func (a *api) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.RootResponse{
		Message:     rootMessage,
		Environment: a.opts.Environment,
		Model:       a.svc.Model(),
	})
}

// health godoc
// @Summary      Backend health
// @Description  Probes the backend by listing its models. Never cached.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /health [get]
func (a *api) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(a.opts.BaseContext, r)
	defer cancel()
	if !a.svc.HealthCheck(ctx) {
		writeDetail(w, http.StatusServiceUnavailable, "Ollama service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", Ollama: "connected"})
}

// models godoc
// @Summary      List backend models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /models [get]
func (a *api) models(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(a.opts.BaseContext, r)
	defer cancel()
	models, err := a.svc.ListModels(ctx)
	if err != nil {
		a.opts.Logger.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("list models failed")
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models, Current: a.svc.Model()})
}

// generate godoc
// @Summary      Generate text
// @Description  Blocking requests return {"text"}. With stream=true the response is text/event-stream carrying raw text fragments as they are produced.
// @Tags         generate
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Param        request  body      types.GenerateRequest  true  "Generation request"
// @Success      200      {object}  types.GenerateResponse
// @Failure      413      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /generate [post]
func (a *api) generate(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			writeDetail(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxBodyBytes)
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if req.Prompt == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "prompt: field required")
		return
	}

	p := relay.Params{
		Prompt:      *req.Prompt,
		System:      req.System,
		Temperature: relay.DefaultTemperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}

	log := newRequestLog(a.opts.Logger, r)
	log.begin(a.svc.Model(), req.Stream)
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := requestContext(a.opts.BaseContext, r)
	defer cancel()

	if req.Stream {
		a.stream(ctx, w, p, log)
		return
	}

	text, err := a.svc.Generate(ctx, p)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil {
			log.end(499, err)
			return
		}
		writeDetail(w, http.StatusInternalServerError, "Generation failed: "+err.Error())
		log.end(http.StatusInternalServerError, err)
		return
	}
	if lw := log.textWriter(); lw != nil {
		_, _ = io.WriteString(lw, text)
		lw.Flush()
	}
	writeJSON(w, http.StatusOK, types.GenerateResponse{Text: text})
	log.end(http.StatusOK, nil)
}

// stream relays fragments to the client, flushing each one as it arrives.
// A failure before the first fragment is reported as a 500. A later failure
// aborts the connection so the client never sees a clean end of stream.
func (a *api) stream(ctx context.Context, w http.ResponseWriter, p relay.Params, log *requestLog) {
	frags := a.svc.GenerateStream(ctx, p)

	first, ok := <-frags
	if ok && first.Err != nil {
		writeDetail(w, http.StatusInternalServerError, "Generation failed: "+first.Err.Error())
		log.end(http.StatusInternalServerError, first.Err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	writer := io.Writer(w)
	if lw := log.textWriter(); lw != nil {
		writer = io.MultiWriter(w, lw)
		defer lw.Flush()
	}

	for f := first; ok; f, ok = <-frags {
		if f.Err != nil {
			log.end(http.StatusOK, f.Err)
			flush()
			// Recoverer re-panics this value and net/http drops the connection
			// without writing the terminating chunk.
			panic(http.ErrAbortHandler)
		}
		if _, err := io.WriteString(writer, f.Text); err != nil {
			log.end(http.StatusOK, err)
			return
		}
		flush()
	}
	flush()
	log.end(http.StatusOK, nil)
}
