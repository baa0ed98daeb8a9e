// Package httpx carries the small HTTP plumbing shared by every handler:
// middleware composition, JSON response helpers, OAuth2-style error bodies
// and rate limiting.
package httpx

import "net/http"

// Middleware wraps a handler with extra behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h in declaration order: the first middleware
// listed is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
