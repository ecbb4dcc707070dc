package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
	promexport "github.com/MrEthical07/goGuard/metrics/export/prometheus"
	"github.com/MrEthical07/goGuard/session"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><body>
{{if .Flash}}<p class="flash">{{.Flash}}</p>{{end}}
<p>{{.Message}}</p>
{{if .Token}}<form method="post" action="{{.Action}}">
  <input type="hidden" name="_token" value="{{.Token}}">
  {{if .Login}}<input name="user">{{end}}
  <button>{{.Button}}</button>
</form>{{end}}
</body></html>
`))

type pageData struct {
	Flash, Message, Token, Action, Button string
	Login                                 bool
}

// routes wires the demo endpoints:
//
//	GET  /login      guest page with a login form
//	POST /login      guest, throttled; any non-empty user name logs in
//	GET  /dashboard  session-authenticated page
//	POST /logout     session-authenticated
//	POST /tokens     session-authenticated; mints a bearer token
//	GET  /api/me     bearer or session identity, JSON
//	GET  /healthz    unguarded
//	GET  metrics     Prometheus exposition when metrics are enabled
func routes(engine *goGuard.Engine) (http.Handler, error) {
	cfg := engine.Config()

	loginLimit := cfg.RateLimit
	loginLimit.MaxAttempts = min(loginLimit.MaxAttempts, 10)
	throttle, err := engine.RateLimiter(loginLimit)
	if err != nil {
		return nil, fmt.Errorf("login rate limiter: %w", err)
	}
	apiLimit, err := engine.RateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("api rate limiter: %w", err)
	}

	guest := engine.Web(engine.GuestGuard())
	web := engine.Web(engine.AuthGuard())
	api := engine.Pipeline(apiLimit, engine.SessionGuard(), engine.AuthGuard())

	mux := http.NewServeMux()
	mux.Handle("GET /login", guest.ThenFunc(loginPage(engine)))
	mux.Handle("POST /login", guest.Append(throttle).ThenFunc(login(engine)))
	mux.Handle("GET /dashboard", web.ThenFunc(dashboardPage(engine)))
	mux.Handle("POST /logout", web.ThenFunc(logout(engine)))
	mux.Handle("POST /tokens", web.ThenFunc(issueToken(engine)))
	mux.Handle("GET /api/me", api.ThenFunc(me))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promexport.NewCollector(engine).Handler())
	}
	return mux, nil
}

func flash(r *http.Request) string {
	if sess := session.FromContext(r.Context()); sess != nil {
		msg, _ := sess.Get("error")
		return msg
	}
	return ""
}

func loginPage(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := engine.CSRFToken(r)
		if err != nil {
			goGuard.DefaultErrorHandler(w, r, err)
			return
		}
		_ = page.Execute(w, pageData{
			Flash: flash(r), Message: "Please log in.",
			Token: tok, Action: "/login", Button: "Log in", Login: true,
		})
	}
}

func login(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.PostFormValue("user")
		if user == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := engine.Login(r, &goGuard.Identity{UserID: user}); err != nil {
			goGuard.DefaultErrorHandler(w, r, err)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func dashboardPage(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := goGuard.IdentityFromContext(r.Context())
		tok, _ := engine.CSRFToken(r)
		_ = page.Execute(w, pageData{
			Message: "Signed in as " + id.UserID,
			Token:   tok, Action: "/logout", Button: "Log out",
		})
	}
}

func logout(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Logout(r); err != nil {
			goGuard.DefaultErrorHandler(w, r, err)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func issueToken(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := goGuard.IdentityFromContext(r.Context())
		tok, err := engine.IssueToken(r.Context(), id, 0)
		if err != nil {
			goGuard.DefaultErrorHandler(w, r, err)
			return
		}
		goGuard.WriteJSON(w, http.StatusCreated, map[string]string{"token": tok})
	}
}

func me(w http.ResponseWriter, r *http.Request) {
	id, _ := goGuard.IdentityFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(id)
}
