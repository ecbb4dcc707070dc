package goGuard

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/goGuard/session"
)

const (
	guardCSRF = "csrf"

	// csrfTokenBytes is the entropy of a CSRF token (256 bits).
	csrfTokenBytes = 32
)

// CSRFGuard rejects state-changing requests whose submitted token does not
// equal the one stored in the session. It needs a session in the request
// context, so it must run after [SessionGuard].
type CSRFGuard struct {
	cfg CSRFConfig
	obs *observer
}

func NewCSRFGuard(cfg CSRFConfig) *CSRFGuard {
	return &CSRFGuard{cfg: cfg}
}

// Token returns the session's CSRF token, creating it on first use.
func (g *CSRFGuard) Token(sess *session.Session) (string, error) {
	if tok, ok := sess.Get(g.cfg.SessionKey); ok && tok != "" {
		return tok, nil
	}
	return g.Regenerate(sess)
}

// Regenerate replaces the session's CSRF token.
func (g *CSRFGuard) Regenerate(sess *session.Session) (string, error) {
	tok, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	sess.Set(g.cfg.SessionKey, tok)
	g.obs.inc(MetricCSRFTokenGenerated)
	return tok, nil
}

func (g *CSRFGuard) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrSessionMissing
	}

	stored, err := g.Token(sess)
	if err != nil {
		return err
	}

	if !csrfProtected(r.Method) || g.exempt(r.URL.Path) {
		next.ServeHTTP(w, r)
		return nil
	}

	if tokensMatch(stored, g.candidate(r)) {
		next.ServeHTTP(w, r)
		return nil
	}

	g.obs.inc(MetricCSRFMismatch)
	g.obs.reject(r, guardCSRF, AuditCSRFMismatch, http.StatusForbidden, ErrCSRFTokenMismatch)
	if ExpectsJSON(r) {
		WriteJSON(w, http.StatusForbidden, ErrorBody{
			Error:   "csrf_token_mismatch",
			Message: "CSRF token mismatch.",
		})
		return nil
	}
	sess.Flash(g.cfg.FlashKey, g.cfg.FlashMessage)
	RedirectWithStatus(w, g.back(r), http.StatusForbidden)
	return nil
}

// candidate returns the first non-empty submitted token: form field, JSON
// field, X-CSRF-TOKEN, then X-XSRF-TOKEN.
func (g *CSRFGuard) candidate(r *http.Request) string {
	if tok := formField(r, g.cfg.FieldName, g.cfg.MaxBodyBytes); tok != "" {
		return tok
	}
	if tok := jsonField(r, g.cfg.FieldName, g.cfg.MaxBodyBytes); tok != "" {
		return tok
	}
	if tok := r.Header.Get("X-CSRF-TOKEN"); tok != "" {
		return tok
	}
	return r.Header.Get("X-XSRF-TOKEN")
}

func (g *CSRFGuard) exempt(path string) bool {
	for _, prefix := range g.cfg.Except {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// back returns the Referer when it points at this host, else the fallback.
func (g *CSRFGuard) back(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return g.cfg.FallbackPath
	}
	u, err := url.Parse(ref)
	if err != nil {
		return g.cfg.FallbackPath
	}

	if !u.IsAbs() && u.Host == "" {
		if isLocalPath(ref) {
			return ref
		}
		return g.cfg.FallbackPath
	}
	if (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, r.Host) {
		return ref
	}
	return g.cfg.FallbackPath
}

func csrfProtected(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// tokensMatch compares in constant time. An empty value never matches.
func tokensMatch(stored, candidate string) bool {
	if stored == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
