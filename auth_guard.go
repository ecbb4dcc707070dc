package goGuard

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/token"
)

const guardAuth = "auth"

// AuthGuard admits requests that carry an identity, either in the session
// (stored by Engine.Login) or as a bearer token resolved by the token store.
// The session is always checked first; when it holds an identity the token
// store is never called.
type AuthGuard struct {
	cfg    AuthConfig
	tokens token.Store
	obs    *observer
}

// NewAuthGuard returns an auth guard. A nil tokens store disables bearer
// authentication.
func NewAuthGuard(cfg AuthConfig, tokens token.Store) *AuthGuard {
	return &AuthGuard{cfg: cfg, tokens: tokens}
}

// Resolve returns the request's identity, or nil when it has none. An error
// wrapping [ErrStoreUnavailable] means the answer is unknown.
func (g *AuthGuard) Resolve(r *http.Request) (*Identity, error) {
	id, _, err := g.resolve(r)
	return id, err
}

// resolve also reports where the identity came from.
func (g *AuthGuard) resolve(r *http.Request) (*Identity, string, error) {
	if id := g.sessionIdentity(r); id != nil {
		return id, "session", nil
	}
	if id, ok := IdentityFromContext(r.Context()); ok {
		return id, "context", nil
	}
	if g.tokens == nil {
		return nil, "", nil
	}

	tok := g.extractToken(r)
	if tok == "" {
		return nil, "", nil
	}
	id, err := g.tokens.Resolve(r.Context(), tok)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if id == nil || id.UserID == "" {
		return nil, "", nil
	}
	return id, "token", nil
}

func (g *AuthGuard) sessionIdentity(r *http.Request) *Identity {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return nil
	}
	raw, ok := sess.Get(g.cfg.SessionKey)
	if !ok || raw == "" {
		return nil
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.UserID == "" {
		g.obs.log().WarnContext(r.Context(), "ignoring malformed session identity", "path", r.URL.Path)
		return nil
	}
	return &id
}

// extractToken prefers the Authorization header over the request field.
func (g *AuthGuard) extractToken(r *http.Request) string {
	if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return tok
	}
	if g.cfg.TokenField == "" {
		return ""
	}
	if tok := r.URL.Query().Get(g.cfg.TokenField); tok != "" {
		return tok
	}
	return formField(r, g.cfg.TokenField, 1<<20)
}

func (g *AuthGuard) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	id, via, err := g.resolve(r)
	if err != nil {
		return err
	}

	if id == nil {
		g.obs.inc(MetricAuthReject)
		if ExpectsJSON(r) {
			g.obs.reject(r, guardAuth, AuditAuthRejected, http.StatusUnauthorized, ErrUnauthenticated)
			WriteJSON(w, http.StatusUnauthorized, ErrorBody{
				Error:   "unauthenticated",
				Message: "Authentication is required to access this resource.",
			})
			return nil
		}
		g.obs.reject(r, guardAuth, AuditAuthRejected, http.StatusFound, ErrUnauthenticated)
		RedirectWithStatus(w, g.cfg.LoginPath, http.StatusFound)
		return nil
	}

	switch via {
	case "session":
		g.obs.inc(MetricSessionAdmit)
	case "token":
		g.obs.inc(MetricTokenAdmit)
	}
	g.obs.admit(r, guardAuth, via)

	if via != "context" {
		r = r.WithContext(WithIdentity(r.Context(), id))
	}
	next.ServeHTTP(w, r)
	return nil
}
