package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

// ReasonClass categorizes why a strategy did not produce a session.
type ReasonClass string

const (
	// ReasonNotConfigured means the strategy had no inputs to work with.
	ReasonNotConfigured ReasonClass = "NotConfigured"
	// ReasonRejected means the strategy ran but its result was refused.
	ReasonRejected ReasonClass = "Rejected"
	// ReasonUnavailable means the strategy could not run at all.
	ReasonUnavailable ReasonClass = "Unavailable"
)

// StrategyError records one strategy's failure within the chain.
type StrategyError struct {
	Strategy Strategy
	Class    ReasonClass
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Class, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// Error is the aggregate failure when every strategy is exhausted.
type Error struct {
	Attempts []*StrategyError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "authentication failed: " + strings.Join(parts, "; ")
}

// ProbeFunc confirms a candidate session works with a lightweight call.
type ProbeFunc func(ctx context.Context) error

type strategy interface {
	Name() Strategy
	Resolve(ctx context.Context) (*Session, error)
}

// Resolver produces a valid session using strategies in fixed priority
// order: cached token, explicit credentials, delegated exchange,
// interactive login. The first strategy whose session passes the probe
// wins; later strategies are not attempted.
type Resolver struct {
	mu         sync.Mutex
	store      *Store
	probe      ProbeFunc
	strategies []strategy
	now        func() time.Time
}

// NewResolver builds a resolver over the configured strategies. The
// probe is typically the control-plane Probe reading tokens from store.
func NewResolver(cfg config.AuthConfig, timeouts *config.Timeouts, store *Store, probe ProbeFunc) *Resolver {
	return &Resolver{
		store: store,
		probe: probe,
		strategies: []strategy{
			&cachedStrategy{cfg: cfg},
			&explicitStrategy{cfg: cfg},
			&delegatedStrategy{cfg: cfg, run: runCommand, look: lookPath},
			&interactiveStrategy{cfg: cfg, timeout: timeouts.Interactive, run: runCommand, look: lookPath},
		},
		now: time.Now,
	}
}

// Resolve walks the strategy chain and installs the first session whose
// validity the probe confirms. Each strategy failure is recorded with
// its reason class; exhausting the chain returns an aggregate *Error.
func (r *Resolver) Resolve(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.store.Current(); ok && !sess.Expired(r.now()) {
		return sess, nil
	}

	var attempts []*StrategyError
	for _, strat := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sess, err := strat.Resolve(ctx)
		if err != nil {
			attempts = append(attempts, asStrategyError(strat.Name(), err))
			continue
		}
		if sess.Expired(r.now()) {
			attempts = append(attempts, &StrategyError{
				Strategy: strat.Name(),
				Class:    ReasonRejected,
				Err:      fmt.Errorf("token expired at %s", sess.ExpiresAt.Format(time.RFC3339)),
			})
			continue
		}

		r.store.Set(sess)
		if r.probe != nil {
			if perr := r.probe(ctx); perr != nil {
				r.store.Invalidate()
				attempts = append(attempts, &StrategyError{
					Strategy: strat.Name(),
					Class:    ReasonRejected,
					Err:      fmt.Errorf("probe failed: %w", perr),
				})
				continue
			}
		}
		return sess, nil
	}

	return nil, &Error{Attempts: attempts}
}

// Invalidate marks the stored session unusable, forcing the next
// Resolve to re-run the chain.
func (r *Resolver) Invalidate() {
	r.store.Invalidate()
}

// WithReauth runs op, and when it fails with an authentication-class
// error, clears the session, re-runs the chain once, and retries op a
// single time. Anything else propagates unchanged.
func (r *Resolver) WithReauth(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !fabric.IsAuth(err) {
		return err
	}

	r.Invalidate()
	if _, rerr := r.Resolve(ctx); rerr != nil {
		return fmt.Errorf("session invalidated and re-resolution failed: %w", rerr)
	}
	return op(ctx)
}

func asStrategyError(name Strategy, err error) *StrategyError {
	if se, ok := err.(*StrategyError); ok {
		return se
	}
	return &StrategyError{Strategy: name, Class: ReasonUnavailable, Err: err}
}
