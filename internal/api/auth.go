// Package api implements HTTP handlers and helpers for the antroute solver service.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"antroute/internal/auth"
)

type Principal struct {
	Client string // rate limiting key
	Role   string // admin, client
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

type ctxKeyPrincipal struct{}

// publicPaths never require a bearer token.
var publicPaths = map[string]bool{
	"/healthz": true, "/readyz": true, "/metrics": true,
	"/openapi.yaml": true, "/openapi.json": true, "/docs": true,
}

// authenticate verifies bearer tokens when auth is enabled and stores the principal in the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	if !s.Auth.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required", r.URL.Path)
			return
		}
		ap, err := s.Auth.Verify(token)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrExpired) {
				// key fetch failures are ours, not the caller's
				status = http.StatusServiceUnavailable
			}
			writeProblem(w, status, "Unauthorized", err.Error(), r.URL.Path)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyPrincipal{}, Principal{Client: ap.Client, Role: ap.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getPrincipal returns the verified token principal, or with auth off reads the caller identity from
// headers: X-Client-Id falls back to the remote IP and X-Role defaults to admin for local development.
func (s *Server) getPrincipal(r *http.Request) Principal {
	if p, ok := r.Context().Value(ctxKeyPrincipal{}).(Principal); ok {
		return p
	}
	client := strings.TrimSpace(r.Header.Get("X-Client-Id"))
	if client == "" {
		client = remoteIP(r)
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return Principal{Client: client, Role: role}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
