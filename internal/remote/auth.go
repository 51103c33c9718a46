package remote

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenGuard checks the access token the remote store enforces its
// row-level policies against. An expired token would be rejected by
// every call anyway; refusing locally skips the network round-trip and
// classifies the failure the same way the store would.
type tokenGuard struct {
	mu    sync.RWMutex
	token string
	exp   time.Time
}

var errTokenExpired = errors.New("access token expired")

func newTokenGuard(token string) *tokenGuard {
	g := &tokenGuard{}
	g.SetToken(token)
	return g
}

// SetToken replaces the access token, typically after the application
// shell refreshes its session.
func (g *tokenGuard) SetToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	g.exp = time.Time{}

	if token == "" {
		return
	}
	// The signature is the store's to verify; here only the expiry
	// claim matters.
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		g.exp = exp.Time
	}
}

// check returns a classified permission failure when the token has
// expired. Tokens without an expiry claim always pass.
func (g *tokenGuard) check(now time.Time) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.exp.IsZero() && now.After(g.exp) {
		return &SyncError{Class: ClassPermissionDenied, Err: errTokenExpired}
	}
	return nil
}
