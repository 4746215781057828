// Package auth resolves a usable control-plane session from an ordered
// chain of credential strategies.
//
// The session store is the only mutable state shared across components:
// it is read by every control-plane caller and written only by the
// Resolver. Sessions are never persisted across runs; only raw tokens
// may be cached on disk for the CachedToken strategy.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Strategy identifies which fallback method produced a session.
type Strategy string

const (
	StrategyExplicitCredential Strategy = "ExplicitCredential"
	StrategyCachedToken        Strategy = "CachedToken"
	StrategyInteractiveBrowser Strategy = "InteractiveBrowser"
	StrategyDelegatedExchange  Strategy = "DelegatedExchange"
)

// Session is a resolved authenticated identity against the control plane.
type Session struct {
	// Identity is an opaque principal identifier.
	Identity string

	// Token is the bearer token for API calls.
	Token string

	// Strategy records which method produced this session.
	Strategy Strategy

	// ExpiresAt is the token expiry when known. The zero value means
	// unknown: the session must be re-validated before reliance.
	ExpiresAt time.Time
}

// Expired reports whether the session is known to be expired at now.
// Sessions with unknown expiry are never reported expired here; the
// probe call is what confirms their validity.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ErrNoSession is returned when a token is requested before a session
// has been resolved or after it was invalidated.
var ErrNoSession = errors.New("no valid session")

// Store holds the current session. Invalidation keeps the session
// value for inspection but marks it unusable until the resolver
// replaces it.
type Store struct {
	mu      sync.RWMutex
	session *Session
	valid   bool
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the session and whether it is still considered valid.
func (st *Store) Current() (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.session, st.valid && st.session != nil
}

// Set installs a freshly resolved session and marks it valid.
func (st *Store) Set(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = s
	st.valid = s != nil
}

// Invalidate marks the current session unusable without discarding it.
func (st *Store) Invalidate() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.valid = false
}

// Token implements the control-plane token source.
func (st *Store) Token(context.Context) (string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.valid || st.session == nil {
		return "", ErrNoSession
	}
	return st.session.Token, nil
}
