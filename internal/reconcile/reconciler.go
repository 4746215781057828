package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/util/async"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/util/retry"
)

var errParentUnavailable = errors.New("parent unavailable")

// Reauther re-resolves the session once when an operation fails with an
// authentication-class error. Implemented by auth.Resolver.
type Reauther interface {
	WithReauth(ctx context.Context, op func(context.Context) error) error
}

// Options configures a Reconciler. Zero values get sensible defaults.
type Options struct {
	Reauth      Reauther
	Observer    Observer
	Timeouts    *config.Timeouts
	MaxParallel int
}

// Reconciler drives the declared resource tree to convergence.
// Parents are fully resolved before any child is processed; siblings
// converge in parallel through a bounded worker pool.
type Reconciler struct {
	cp          fabric.ControlPlane
	reauth      Reauther
	obs         Observer
	timeouts    *config.Timeouts
	maxParallel int
}

// NewReconciler creates a reconciler over the given control plane.
func NewReconciler(cp fabric.ControlPlane, opts Options) *Reconciler {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	timeouts := opts.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	return &Reconciler{
		cp:          cp,
		reauth:      opts.Reauth,
		obs:         obs,
		timeouts:    timeouts,
		maxParallel: opts.MaxParallel,
	}
}

// Converge brings the declared tree into existence idempotently and
// returns the annotated report. Re-running against an already-converged
// topology issues only read-only existence checks.
func (r *Reconciler) Converge(ctx context.Context, roots []*Node) *Report {
	r.obs.Event(Event{Type: EventRunStarted, Message: fmt.Sprintf("converging %d root resource(s)", len(roots))})

	tasks := make([]async.Task, 0, len(roots))
	for _, root := range roots {
		root := root
		tasks = append(tasks, async.Task{
			Name: string(root.Kind) + "/" + root.Name,
			Func: func(taskCtx context.Context) error {
				r.convergeNode(taskCtx, root)
				return nil
			},
		})
	}
	_ = async.RunBounded(ctx, r.maxParallel, tasks)

	rep := BuildReport(roots, ctx.Err() != nil)
	r.obs.Event(Event{Type: EventRunCompleted, Message: fmt.Sprintf("converged=%t issues=%d", rep.Converged(), len(rep.Issues))})
	return rep
}

// convergeNode resolves one node and then its children. Nodes left
// unprocessed by cancellation stay Unknown.
func (r *Reconciler) convergeNode(ctx context.Context, n *Node) {
	if ctx.Err() != nil {
		return
	}

	r.resolveNode(ctx, n)

	if !n.State.Resolved() {
		for _, child := range n.Children {
			r.pruneSubtree(child)
		}
		return
	}

	if len(n.Children) == 0 {
		return
	}
	tasks := make([]async.Task, 0, len(n.Children))
	for _, child := range n.Children {
		child := child
		tasks = append(tasks, async.Task{
			Name: string(child.Kind) + "/" + child.Name,
			Func: func(taskCtx context.Context) error {
				r.convergeNode(taskCtx, child)
				return nil
			},
		})
	}
	_ = async.RunBounded(ctx, r.maxParallel, tasks)
}

// resolveNode runs the check-then-create sequence for a single node.
func (r *Reconciler) resolveNode(ctx context.Context, n *Node) {
	n.State = StateChecking
	r.obs.Event(Event{Type: EventResourceChecking, Kind: n.Kind, Resource: n.Name})

	found, id, err := r.checkExists(ctx, n)
	if err != nil {
		r.fail(n, err)
		return
	}
	if found {
		r.markExists(n, id, false)
		return
	}

	if n.VerifyOnly {
		r.fail(n, fmt.Errorf("%s %q not found and creation is disabled", n.Kind, n.Name))
		return
	}

	n.State = StateCreating
	r.obs.Event(Event{Type: EventResourceCreating, Kind: n.Kind, Resource: n.Name})

	id, err = r.create(ctx, n)
	if err != nil {
		if fabric.IsAlreadyExists(err) {
			// Lost the check-then-act race: another actor created the
			// same name between the check and the create. Same terminal
			// state as a check hit.
			raceID := ""
			if refound, rid, rerr := r.cp.CheckExists(ctx, n.Kind, n.Name, n.ParentID()); rerr == nil && refound {
				raceID = rid
			}
			r.markExists(n, raceID, true)
			return
		}
		r.fail(n, err)
		return
	}

	n.ID = id
	n.State = StateCreated
	createsTotal.WithLabelValues(string(n.Kind)).Inc()
	r.obs.Event(Event{Type: EventResourceCreated, Kind: n.Kind, Resource: n.Name, Fields: map[string]string{"id": id}})
}

func (r *Reconciler) markExists(n *Node, id string, raced bool) {
	n.ID = id
	n.State = StateExists
	existsTotal.WithLabelValues(string(n.Kind)).Inc()
	ev := Event{Type: EventResourceExists, Kind: n.Kind, Resource: n.Name, Fields: map[string]string{"id": id}}
	if raced {
		ev.Message = "created concurrently elsewhere"
	}
	r.obs.Event(ev)
}

func (r *Reconciler) fail(n *Node, err error) {
	n.State = StateFailed
	n.Err = err
	n.Class = fabric.Classify(err)
	failuresTotal.WithLabelValues(string(n.Kind), string(n.Class)).Inc()
	r.obs.Event(Event{Type: EventResourceFailed, Kind: n.Kind, Resource: n.Name, Message: err.Error()})
}

// pruneSubtree marks a node and its descendants Failed without issuing
// any control-plane calls.
func (r *Reconciler) pruneSubtree(n *Node) {
	n.Walk(func(node *Node) {
		node.State = StateFailed
		node.Err = errParentUnavailable
		node.Class = fabric.ClassFatal
		failuresTotal.WithLabelValues(string(node.Kind), string(node.Class)).Inc()
		r.obs.Event(Event{Type: EventResourceFailed, Kind: node.Kind, Resource: node.Name, Message: errParentUnavailable.Error()})
	})
}

// checkExists queries existence with bounded retries for transient
// failures and a single re-auth on session invalidation.
func (r *Reconciler) checkExists(ctx context.Context, n *Node) (bool, string, error) {
	var found bool
	var id string
	err := r.withRetry(ctx, n, func(callCtx context.Context) error {
		f, i, e := r.cp.CheckExists(callCtx, n.Kind, n.Name, n.ParentID())
		if e != nil {
			return e
		}
		found, id = f, i
		return nil
	})
	return found, id, err
}

func (r *Reconciler) create(ctx context.Context, n *Node) (string, error) {
	var id string
	err := r.withRetry(ctx, n, func(callCtx context.Context) error {
		created, e := r.cp.Create(callCtx, n.Kind, n.Name, n.ParentID(), n.Definition)
		if e != nil {
			return e
		}
		id = created
		return nil
	})
	return id, err
}

// withRetry applies the retry policy: transient errors get bounded
// backoff, everything else surfaces immediately.
func (r *Reconciler) withRetry(ctx context.Context, n *Node, op func(context.Context) error) error {
	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++
		callErr := r.do(ctx, op)
		if callErr != nil && !fabric.IsTransient(callErr) {
			return retry.Fatal(callErr)
		}
		return callErr
	},
		retry.WithMaxAttempts(r.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(r.timeouts.RetryInitialDelay),
	)
	if attempts > 1 {
		retriesTotal.WithLabelValues(string(n.Kind)).Add(float64(attempts - 1))
	}
	return err
}

func (r *Reconciler) do(ctx context.Context, op func(context.Context) error) error {
	if r.reauth != nil {
		return r.reauth.WithReauth(ctx, op)
	}
	return op(ctx)
}
