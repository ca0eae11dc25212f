// Package security guards the admin surface with a single shared
// bearer credential.
package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type BearerAuth struct {
	Enabled bool
	Token   string
}

// Authorize checks the Authorization header against the configured
// token in constant time.
func (a BearerAuth) Authorize(r *http.Request) bool {
	if !a.Enabled {
		return true
	}
	head := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(head, prefix) {
		return false
	}
	candidate := strings.TrimSpace(strings.TrimPrefix(head, prefix))
	if len(candidate) != len(a.Token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.Token)) == 1
}
