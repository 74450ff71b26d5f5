package auth

import (
	"net/http"
	"strings"

	"blogchat/internal/model"
)

// Gate authenticates a connection attempt from its handshake, before anything else is attached to it.
type Gate struct {
	verifier IdentityVerifier
}

func NewGate(verifier IdentityVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Credential extracts the bearer token from the handshake: the Authorization header,
// or the token query parameter for browsers that cannot set headers on a websocket.
func Credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate verifies the handshake credential. Errors wrap apperr.ErrUnauthorized
// unless the user store itself failed.
func (g *Gate) Authenticate(r *http.Request) (model.Identity, error) {
	return g.verifier.Verify(r.Context(), Credential(r))
}
