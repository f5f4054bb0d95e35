package httpapi

import (
	"context"

	"github.com/rs/zerolog"
)

// defaultMaxBodyBytes bounds POST /generate bodies when Options leaves it unset.
const defaultMaxBodyBytes int64 = 1 << 20

// Options configures the router built by NewMux.
type Options struct {
	// Environment is echoed by GET /.
	Environment string
	// MaxBodyBytes limits JSON request bodies; <= 0 means 1 MiB.
	MaxBodyBytes int64
	// Metrics mounts request instrumentation and GET /metrics.
	Metrics bool
	// Debug mounts the pprof profiler under /debug.
	Debug bool
	// CORSOrigins enables CORS for the listed origins. Empty disables it.
	CORSOrigins []string
	// BaseContext is canceled on shutdown; in-flight generations are
	// abandoned when it is. Defaults to Background.
	BaseContext context.Context
	// Logger receives request logs. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}
