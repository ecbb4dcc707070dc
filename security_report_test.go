package goGuard

import (
	"strings"
	"testing"
)

func TestSecurityReportReflectsPosture(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Secure = true
	cfg.Session.SameSite = "strict"
	cfg.Token.Store = "jwt"
	cfg.Token.JWT.Secret = strings.Repeat("s", 32)
	cfg.CSRF.Except = []string{"/hooks"}
	cfg.RateLimit.TrustForwardedFor = true

	e := newTestEngine(t, nil, func(b *Builder) { b.WithConfig(cfg) })
	report := e.SecurityReport()

	if report.TokenStore != "jwt" || report.SigningAlgorithm != "hs256" {
		t.Fatalf("token posture = %q %q", report.TokenStore, report.SigningAlgorithm)
	}
	if !report.CookieSecure || report.CookieSameSite != "strict" {
		t.Fatalf("cookie posture = %+v", report)
	}
	if report.RateLimit != 60 || report.RateLimitWindow.Seconds() != 60 {
		t.Fatalf("rate limit = %d/%v", report.RateLimit, report.RateLimitWindow)
	}

	warnings := strings.Join(report.Warnings(), "; ")
	for _, want := range []string{"X-Forwarded-For", "skip CSRF", "in-memory"} {
		if !strings.Contains(warnings, want) {
			t.Fatalf("warnings %q missing %q", warnings, want)
		}
	}
	if strings.Contains(warnings, "plain HTTP") {
		t.Fatalf("secure cookie reported as insecure: %q", warnings)
	}

	report.CSRFExemptPaths[0] = "/mutated"
	if e.SecurityReport().CSRFExemptPaths[0] != "/hooks" {
		t.Fatal("report shares config slice")
	}
}
