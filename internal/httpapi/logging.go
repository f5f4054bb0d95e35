package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

const defaultLogLevel = LevelInfo

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLog carries the logger and verbosity for one request.
type requestLog struct {
	zl    *zerolog.Logger
	lvl   LogLevel
	start time.Time
	rid   string
	path  string
}

func newRequestLog(zl *zerolog.Logger, r *http.Request) *requestLog {
	return &requestLog{
		zl:    zl,
		lvl:   requestLogLevel(r),
		start: time.Now(),
		rid:   middleware.GetReqID(r.Context()),
		path:  r.URL.Path,
	}
}

func (l *requestLog) event(e *zerolog.Event) *zerolog.Event {
	e = e.Str("path", l.path)
	if l.rid != "" {
		e = e.Str("request_id", l.rid)
	}
	return e
}

func (l *requestLog) begin(model string, stream bool) {
	if l.lvl >= LevelInfo {
		l.event(l.zl.Info()).Str("model", model).Bool("stream", stream).Msg("generate start")
	}
}

// end logs completion; failures are logged from LevelError up.
func (l *requestLog) end(status int, err error) {
	switch {
	case err != nil && l.lvl >= LevelError:
		l.event(l.zl.Error()).Int("status", status).Dur("dur", time.Since(l.start)).Err(err).Msg("generate end")
	case err == nil && l.lvl >= LevelInfo:
		l.event(l.zl.Info()).Int("status", status).Dur("dur", time.Since(l.start)).Msg("generate end")
	}
}

// textWriter returns a sink for generated text when debug logging is on.
func (l *requestLog) textWriter() *loggingLineWriter {
	if l.lvl < LevelDebug {
		return nil
	}
	return &loggingLineWriter{zl: l.zl, rid: l.rid}
}

// loggingLineWriter logs generated text one complete line at a time.
type loggingLineWriter struct {
	zl  *zerolog.Logger
	rid string
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (lw *loggingLineWriter) Flush() {
	lw.emit(lw.buf)
	lw.buf = nil
}

func (lw *loggingLineWriter) emit(line []byte) {
	if len(line) == 0 {
		return
	}
	e := lw.zl.Debug()
	if lw.rid != "" {
		e = e.Str("request_id", lw.rid)
	}
	e.Str("text", string(line)).Msg("generate>")
}
