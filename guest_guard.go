package goGuard

import "net/http"

const guardGuest = "guest"

// GuestGuard is the inverse of [AuthGuard]: it admits only requests that
// carry no identity, for routes such as login and registration.
type GuestGuard struct {
	auth *AuthGuard
	cfg  AuthConfig
	obs  *observer
}

// NewGuestGuard returns a guest guard that resolves identity through auth.
func NewGuestGuard(auth *AuthGuard) *GuestGuard {
	return &GuestGuard{auth: auth, cfg: auth.cfg, obs: auth.obs}
}

func (g *GuestGuard) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	id, err := g.auth.Resolve(r)
	if err != nil {
		return err
	}
	if id == nil {
		next.ServeHTTP(w, r)
		return nil
	}

	g.obs.inc(MetricGuestReject)
	r = r.WithContext(WithIdentity(r.Context(), id))
	if ExpectsJSON(r) {
		g.obs.reject(r, guardGuest, AuditGuestRejected, http.StatusBadRequest, ErrAlreadyAuthenticated)
		WriteJSON(w, http.StatusBadRequest, ErrorBody{
			Error:   "already_authenticated",
			Message: "This resource is only available to guests.",
		})
		return nil
	}
	g.obs.reject(r, guardGuest, AuditGuestRejected, http.StatusFound, ErrAlreadyAuthenticated)
	RedirectWithStatus(w, g.cfg.HomePath, http.StatusFound)
	return nil
}
