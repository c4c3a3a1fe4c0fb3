// internal/auth/auth.go

// Package auth is the boundary to the external auth collaborator. The
// OAuth handshake happens upstream; this service only consumes the
// authenticated identity and the delegated provider token it produces.
package auth

import (
	"net/http"
	"strings"
)

// User is the authenticated caller as reported by the upstream collaborator.
type User struct {
	ID    string
	Login string
}

// Provider supplies the caller's identity and delegated upstream tokens.
type Provider interface {
	CurrentUser(r *http.Request) (User, bool)
	// DelegatedToken returns the caller's token for the named upstream
	// provider ("github", "discord"). Tokens are capabilities passed per
	// call and never cached here.
	DelegatedToken(r *http.Request, provider string) (string, bool)
}

// HeaderProvider trusts the fronting auth layer: identity arrives in
// X-User-* headers and the delegated token as the bearer credential.
type HeaderProvider struct{}

func (HeaderProvider) CurrentUser(r *http.Request) (User, bool) {
	id := r.Header.Get("X-User-Id")
	if id == "" {
		return User{}, false
	}
	return User{ID: id, Login: r.Header.Get("X-User-Login")}, true
}

func (HeaderProvider) DelegatedToken(r *http.Request, _ string) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}
