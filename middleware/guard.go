package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// Wrap wraps g as middleware. Errors returned by g are rendered by onErr,
// or by goGuard.DefaultErrorHandler when onErr is nil.
func Wrap(g goGuard.Guard, onErr goGuard.ErrorHandler) func(http.Handler) http.Handler {
	if onErr == nil {
		onErr = goGuard.DefaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				onErr(w, r, goGuard.ErrEngineNotReady)
				return
			}
			if err := g.Handle(w, r, next); err != nil {
				onErr(w, r, err)
			}
		})
	}
}

// Pipeline wraps every request in p.
func Pipeline(p *goGuard.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return p.Then(next)
	}
}
