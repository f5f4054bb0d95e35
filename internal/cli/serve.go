package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"llmapi/internal/common/fsutil"
	"llmapi/internal/config"
	"llmapi/internal/httpapi"
	"llmapi/internal/logging"
	"llmapi/internal/ollama"
	"llmapi/internal/relay"
	"llmapi/internal/reload"
)

const shutdownTimeout = 5 * time.Second

// newBackend returns the Ollama client, or the in-process mock when asked.
func newBackend(s config.Settings) relay.Backend {
	if s.MockOllama {
		return ollama.NewMock(s.OllamaModel)
	}
	return ollama.New(s.OllamaHost, s.OllamaTimeout)
}

// newHandler wires settings into the relay and router. base is canceled
// when in-flight generations must be abandoned.
func newHandler(base context.Context, s config.Settings, log zerolog.Logger) http.Handler {
	svc := relay.New(newBackend(s), s.OllamaModel, relay.WithLogger(log))
	return httpapi.NewMux(svc, httpapi.Options{
		Environment: s.Environment,
		Metrics:     s.EnableMetrics,
		Debug:       s.APIDebug,
		CORSOrigins: s.CORSOrigins,
		BaseContext: base,
		Logger:      &log,
	})
}

// serveOnce serves on ln until ctx is done or restart fires, then shuts the
// server down. It reports whether a restart was requested.
func serveOnce(ctx context.Context, s config.Settings, ln net.Listener, log zerolog.Logger, restart <-chan struct{}) (bool, error) {
	base, abandon := context.WithCancel(context.Background())
	defer abandon()

	srv := &http.Server{
		Handler:           newHandler(base, s, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("model", s.OllamaModel).
		Str("ollama", s.OllamaHost).
		Bool("mock", s.MockOllama).
		Bool("test_mode", s.TestMode).
		Msg("llmapi listening")

	restarting := false
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return false, nil
		}
		return false, err
	case <-ctx.Done():
	case <-restart:
		restarting = true
	}

	// Graceful shutdown; streams still running at the deadline are abandoned.
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
		abandon()
		_ = srv.Close()
	}
	return restarting, nil
}

// serve runs the server, restarting it with fresh settings whenever a
// watched file changes and reload is enabled.
func serve(ctx context.Context, f *Flags, overrides map[string]string, stderr io.Writer) error {
	var prev *config.Settings
	for {
		s, err := f.loadSettings(overrides)
		if err != nil {
			if prev == nil {
				return err
			}
			// Keep serving the last good configuration.
			s = *prev
		}
		log, lerr := logging.FromSettings(s, stderr)
		if lerr != nil {
			return lerr
		}
		if err != nil {
			log.Error().Err(err).Msg("reload rejected; keeping previous configuration")
		}
		prev = &s

		var (
			changes   <-chan struct{}
			stopWatch = func() {}
		)
		if s.APIReload {
			changes, stopWatch = watch(ctx, f, log)
		}

		ln, err := net.Listen("tcp", s.Addr())
		if err != nil {
			stopWatch()
			return err
		}
		restart, err := serveOnce(ctx, s, ln, log, changes)
		stopWatch()
		if err != nil || !restart {
			log.Info().Msg("llmapi stopped")
			return err
		}
		log.Info().Msg("configuration changed; restarting")
	}
}

// watch starts a reload watcher over the config and env files.
func watch(ctx context.Context, f *Flags, log zerolog.Logger) (<-chan struct{}, func()) {
	cfgFile, envFile, err := f.paths()
	if err != nil {
		log.Warn().Err(err).Msg("reload disabled")
		return nil, func() {}
	}
	if envFile != "" && !fsutil.PathExists(envFile) {
		log.Debug().Str("file", envFile).Msg("env file not present yet; watching for it")
	}
	w, err := reload.New([]string{cfgFile, envFile}, reload.DefaultDebounce, log)
	if err != nil {
		log.Warn().Err(err).Msg("reload disabled")
		return nil, func() {}
	}
	wctx, cancel := context.WithCancel(ctx)
	go w.Run(wctx)
	return w.Changes(), func() {
		cancel()
		_ = w.Close()
	}
}
