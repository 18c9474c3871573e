package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
)

// Gate holds the expected access token. The token may be swapped at runtime
// (config hot-reload) and is safe for concurrent use.
type Gate struct {
	token atomic.Value // string
}

// NewGate returns a Gate expecting token. An empty token means open mode.
func NewGate(token string) *Gate {
	g := &Gate{}
	g.token.Store(token)
	return g
}

// SetToken replaces the expected token.
func (g *Gate) SetToken(token string) {
	g.token.Store(token)
}

// Open reports whether the gate admits everyone.
func (g *Gate) Open() bool {
	return g.expected() == ""
}

// Authorize reports whether presented grants access.
func (g *Gate) Authorize(presented string) bool {
	want := g.expected()
	if want == "" {
		return true
	}
	return presented == want
}

func (g *Gate) expected() string {
	s, _ := g.token.Load().(string)
	return s
}

// BearerToken extracts the credential from an "Authorization: Bearer <x>"
// header value. Any other scheme yields "".
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return header[len(prefix):]
}

// Middleware rejects requests whose bearer token the gate does not accept
// with 401 and a JSON body. Accepted requests reach next unchanged.
func Middleware(g *Gate, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Authorize(BearerToken(r.Header.Get("Authorization"))) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "Unauthorized"}) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}
