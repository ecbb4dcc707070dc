package goGuard

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/goGuard/identity"
)

// Identity is the principal resolved for a request.
type Identity = identity.Identity

type identityContextKey struct{}

// WithIdentity binds id to ctx. Guards call it after resolving a bearer
// token so downstream handlers can read the principal.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity bound by an earlier guard.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}

// ClientAddr returns the request's client address without port. The first
// X-Forwarded-For entry is used only when trustForwarded is set.
func ClientAddr(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
