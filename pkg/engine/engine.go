// Package engine ties the pieces together: it owns the root tree, the
// registry of state containers, and the serialized mutation queue that makes
// every rebuild deterministic.
//
// An Engine is an explicitly constructed context, never a package-level
// singleton. Its lifecycle is New (init) -> active -> Close (teardown).
// Mutations may be enqueued from any goroutine; they are applied strictly in
// submission order by whichever goroutine drives Flush or Run, one at a time,
// to completion. That single-threaded cooperative model is what guarantees
// "exactly one rebuild per mutation" and rules out interleaved or merged
// rebuilds.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	wefterrors "github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/reconcile"
	"github.com/go-weft/weft/pkg/state"
)

// ErrClosed is returned for any operation against a closed engine.
var ErrClosed = errors.New("engine is closed")

// ErrNoRoot is returned when containers are registered before a root tree
// has been set.
var ErrNoRoot = errors.New("no root tree has been set")

// ErrUnknownContainer is returned when a mutation targets an identity no
// container was registered for.
var ErrUnknownContainer = errors.New("no state container registered for identity")

// Renderer is the external collaborator that materializes dirty regions.
// The engine makes no assumption about what materialization means beyond
// "the renderer eventually reflects each DirtySet it is handed".
type Renderer interface {
	Apply(dirty *reconcile.DirtySet)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(*reconcile.DirtySet)

func (f RendererFunc) Apply(dirty *reconcile.DirtySet) { f(dirty) }

// Options configures a new Engine.
type Options struct {
	// Renderer receives every non-empty DirtySet. May be nil.
	Renderer Renderer
}

type task struct {
	run    func()
	ticket *state.Ticket
}

// Engine is the explicitly constructed engine context.
type Engine struct {
	renderer Renderer
	rec      reconcile.Reconciler

	mu         sync.Mutex
	queue      []task
	wake       chan struct{}
	closed     bool
	root       node.Node
	hasRoot    bool
	containers map[node.Identity]*state.Container
}

// New creates an active engine.
func New(opts Options) *Engine {
	e := &Engine{
		renderer:   opts.Renderer,
		wake:       make(chan struct{}, 1),
		containers: make(map[node.Identity]*state.Container),
	}
	e.rec = reconcile.Reconciler{Unmounter: e}
	return e
}

// SetRoot installs or replaces the root tree. The first call renders the
// whole tree as a single inserted root; later calls diff against the current
// tree (the root identity must not change) and tear down containers whose
// subtrees disappear.
//
// SetRoot runs synchronously and must be called from the goroutine driving
// Flush or Run, like every other rebuild.
func (e *Engine) SetRoot(root node.Node) error {
	if err := node.Validate(root); err != nil {
		return &wefterrors.WeftError{Op: "engine.SetRoot", Kind: wefterrors.KindStructure, Err: err}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return &wefterrors.WeftError{Op: "engine.SetRoot", Kind: wefterrors.KindLifecycle, Err: ErrClosed}
	}
	var previous *node.Node
	if e.hasRoot {
		prev := e.root
		previous = &prev
	}
	e.mu.Unlock()

	dirty, err := e.rec.Diff(previous, &root)
	if err != nil {
		return &wefterrors.WeftError{Op: "engine.SetRoot", Kind: wefterrors.KindStructure, Err: err}
	}

	e.mu.Lock()
	e.root = root
	e.hasRoot = true
	e.mu.Unlock()

	e.render(dirty)
	return nil
}

// Root returns the current root tree and whether one has been set.
func (e *Engine) Root() (node.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root, e.hasRoot
}

// Register attaches a state container to the node carrying the given
// explicit key. The key must be present in the current tree and not already
// claimed by an active container; the node's current subtree becomes the
// baseline the first mutation diffs against.
func (e *Engine) Register(key string, initial state.State, evaluator state.Evaluator) (*state.Container, error) {
	if evaluator == nil {
		return nil, &wefterrors.WeftError{
			Op:   "engine.Register",
			Kind: wefterrors.KindLifecycle,
			Err:  fmt.Errorf("nil evaluator for %q", key),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, &wefterrors.WeftError{Op: "engine.Register", Kind: wefterrors.KindLifecycle, Err: ErrClosed}
	}
	if !e.hasRoot {
		return nil, &wefterrors.WeftError{Op: "engine.Register", Kind: wefterrors.KindLifecycle, Err: ErrNoRoot}
	}

	id := node.Key(key)
	if existing, ok := e.containers[id]; ok && existing.Status() == state.Active {
		return nil, &wefterrors.WeftError{
			Op:   "engine.Register",
			Kind: wefterrors.KindLifecycle,
			Err:  fmt.Errorf("container already registered for %q", key),
		}
	}
	owned, ok := node.FindByKey(e.root, key)
	if !ok {
		return nil, &wefterrors.WeftError{
			Op:   "engine.Register",
			Kind: wefterrors.KindStructure,
			Err:  fmt.Errorf("key %q not present in the current tree", key),
		}
	}

	container := state.NewContainer(id, initial, evaluator)
	container.Seed(owned)
	e.containers[id] = container
	return container, nil
}

// Container returns the container registered for key, torn down or not.
func (e *Engine) Container(key string) (*state.Container, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.containers[node.Key(key)]
	return c, ok
}

// Mutate enqueues one mutation against the container registered for key and
// returns its ticket immediately; the state update and rebuild happen when
// the queue reaches it. Safe to call from any goroutine.
func (e *Engine) Mutate(key string, updater state.Updater) *state.Ticket {
	ticket := state.NewTicket()
	e.enqueue(task{
		ticket: ticket,
		run: func() {
			// Claiming the ticket is what closes the cancellation window:
			// a Cancel racing the drain loop either wins here and the
			// mutation never starts, or loses and returns false.
			if !ticket.Begin() {
				return
			}
			e.applyMutation(node.Key(key), updater, ticket)
		},
	})
	return ticket
}

// Dispatch enqueues a bare callback behind every mutation already queued.
// Safe to call from any goroutine.
func (e *Engine) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	e.enqueue(task{run: fn})
}

func (e *Engine) enqueue(t task) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if t.ticket != nil {
			t.ticket.Resolve(nil, &wefterrors.WeftError{
				Op:   "engine.Mutate",
				Kind: wefterrors.KindLifecycle,
				Err:  ErrClosed,
			})
		}
		return
	}
	e.queue = append(e.queue, t)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Flush drains the queue on the calling goroutine, applying every queued
// mutation and callback strictly in submission order, each to completion
// before the next begins. Items enqueued while flushing are included.
func (e *Engine) Flush() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		pending := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, t := range pending {
			t.run()
		}
	}
}

// Run flushes the queue whenever work arrives, until ctx is done. It is the
// event-loop variant of Flush for hosts that dedicate a goroutine to the
// engine.
func (e *Engine) Run(ctx context.Context) error {
	e.Flush()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
			e.Flush()
		}
	}
}

// Close tears down the engine: every registered container is torn down,
// queued-but-unapplied mutations fail with ErrClosed, and all later
// operations are rejected.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	pending := e.queue
	e.queue = nil
	containers := make([]*state.Container, 0, len(e.containers))
	for _, c := range e.containers {
		containers = append(containers, c)
	}
	e.mu.Unlock()

	for _, t := range pending {
		if t.ticket != nil {
			t.ticket.Resolve(nil, &wefterrors.WeftError{
				Op:   "engine.Close",
				Kind: wefterrors.KindLifecycle,
				Err:  ErrClosed,
			})
		}
	}
	for _, c := range containers {
		c.TearDown()
	}
	return nil
}

// Unmount tears down the container attached to an identity the reconciler
// just removed from the tree. The container stays in the registry so a later
// mutation against it reports torn-down rather than unknown.
func (e *Engine) Unmount(id node.Identity) {
	// Containers only ever attach to explicit keys; positional identities
	// cannot have one.
	if !id.Keyed() {
		return
	}
	e.mu.Lock()
	c, ok := e.containers[id]
	e.mu.Unlock()
	if ok {
		c.TearDown()
	}
}

// applyMutation runs one mutation to completion: evaluate, graft, diff,
// render, resolve. Runs on the drain goroutine.
func (e *Engine) applyMutation(id node.Identity, updater state.Updater, ticket *state.Ticket) {
	e.mu.Lock()
	container, ok := e.containers[id]
	e.mu.Unlock()

	if !ok {
		ticket.Resolve(nil, &wefterrors.WeftError{
			Op:   "engine.Mutate",
			Kind: wefterrors.KindMutation,
			Err:  fmt.Errorf("%q: %w", id, ErrUnknownContainer),
		})
		return
	}

	previous, next, err := container.Apply(updater)
	if err != nil {
		// The mutation is dropped and the failure routed to the global
		// handler; the queue keeps processing. Evaluator panics were
		// already reported by the container.
		var evalErr *wefterrors.EvaluatorError
		var weftErr *wefterrors.WeftError
		switch {
		case errors.As(err, &evalErr):
			if evalErr.Recovered == nil {
				wefterrors.ReportEvaluatorError(evalErr)
			}
		case errors.As(err, &weftErr):
			wefterrors.Report(weftErr)
		default:
			wefterrors.Report(&wefterrors.WeftError{Op: "engine.Mutate", Kind: wefterrors.KindMutation, Err: err})
		}
		ticket.Resolve(nil, err)
		return
	}

	dirty, err := e.rec.Diff(&previous, &next)
	if err != nil {
		werr := &wefterrors.WeftError{Op: "engine.Mutate", Kind: wefterrors.KindStructure, Err: err}
		wefterrors.Report(werr)
		ticket.Resolve(nil, werr)
		return
	}

	e.mu.Lock()
	if e.hasRoot {
		if grafted, ok := graft(e.root, id, next); ok {
			e.root = grafted
		}
	}
	e.mu.Unlock()

	e.render(dirty)
	ticket.Resolve(dirty, nil)
}

func (e *Engine) render(dirty *reconcile.DirtySet) {
	if e.renderer != nil && !dirty.Empty() {
		e.renderer.Apply(dirty)
	}
}

// graft replaces the node carrying id's key with replacement, rebuilding the
// spine above it. The input tree is left untouched.
func graft(n node.Node, id node.Identity, replacement node.Node) (node.Node, bool) {
	if node.Key(n.Key) == id && n.Key != "" {
		return replacement, true
	}
	for i, child := range n.Children {
		if grafted, ok := graft(child, id, replacement); ok {
			children := make([]node.Node, len(n.Children))
			copy(children, n.Children)
			children[i] = grafted
			out := n
			out.Children = children
			return out, true
		}
	}
	return node.Node{}, false
}
