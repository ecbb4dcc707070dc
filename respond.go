package goGuard

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

// ErrorBody is the JSON shape of every structured rejection.
type ErrorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter *int   `json:"retry_after,omitempty"`
}

// ExpectsJSON reports whether the client wants a machine-readable response:
// an XMLHttpRequest, or an Accept header naming application/json or a +json type.
func ExpectsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	for _, accept := range r.Header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			mediaType, _, _ := strings.Cut(part, ";")
			mediaType = strings.ToLower(strings.TrimSpace(mediaType))
			if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
				return true
			}
		}
	}
	return false
}

// WriteJSON writes v as the JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteHTML writes a minimal error page. title and message are escaped.
func WriteHTML(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprintf(w,
		"<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%d %s</title></head>"+
			"<body><h1>%s</h1><p>%s</p></body></html>\n",
		status, html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}

// RedirectWithStatus sets Location and writes status without a body.
// Unlike http.Redirect it accepts non-3xx codes, which the CSRF guard needs
// to pair a redirect target with 403.
func RedirectWithStatus(w http.ResponseWriter, location string, status int) {
	w.Header().Set("Location", location)
	w.WriteHeader(status)
}
