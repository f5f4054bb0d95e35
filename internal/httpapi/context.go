package httpapi

import (
	"context"
	"net/http"
)

// requestContext returns the request context, additionally canceled when
// base is done so shutdown abandons backend calls too. The returned cancel
// func must be called when the handler ends.
func requestContext(base context.Context, r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
