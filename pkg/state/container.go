// Package state implements the mutable side of the engine: containers that
// own one subtree's state and gate every rebuild of that subtree through the
// engine's serialized mutation queue.
package state

import (
	"fmt"
	"sync"
	"time"

	wefterrors "github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/node"
)

// State is the opaque key/value mapping a container owns. The engine never
// interprets it; evaluators do.
type State map[string]any

// Clone returns a shallow copy. Containers hand out and accept clones so the
// stored value is never aliased by application code.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Updater transforms the current state value into the next one. It must be
// pure: no side effects, no retained references to the input.
type Updater func(State) State

// Evaluator is the application-supplied pure function producing a subtree
// from a state value. It is called synchronously while a mutation is applied,
// and its output's root must carry the owning container's key.
type Evaluator func(State) (node.Node, error)

// Status is a container's lifecycle phase.
type Status int

const (
	// Active means the container's subtree is in the tree and mutations
	// are accepted.
	Active Status = iota
	// TornDown means the subtree was removed; the state value is discarded
	// and every further mutation is rejected. There is no way back.
	TornDown
)

func (s Status) String() string {
	if s == TornDown {
		return "torn-down"
	}
	return "active"
}

// Container owns one subtree's mutable state. All access is funneled through
// the owning engine's drain loop, one mutation at a time, so the container
// itself needs no locking beyond the status flag.
type Container struct {
	owner     node.Identity
	evaluator Evaluator

	mu      sync.Mutex
	value   State
	current node.Node
	seeded  bool
	status  Status
}

// NewContainer creates an active container attached to owner. The initial
// state value is cloned; the caller keeps no handle into it.
func NewContainer(owner node.Identity, initial State, evaluator Evaluator) *Container {
	return &Container{
		owner:     owner,
		evaluator: evaluator,
		value:     initial.Clone(),
	}
}

// Owner returns the identity the container is attached to.
func (c *Container) Owner() node.Identity { return c.owner }

// Status returns the current lifecycle phase.
func (c *Container) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Value returns a snapshot of the current state value.
func (c *Container) Value() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value.Clone()
}

// Subtree returns the container's current subtree and whether one has been
// seeded yet.
func (c *Container) Subtree() (node.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.seeded
}

// Seed records the subtree currently materialized for this container, the
// baseline the first mutation diffs against. Called by the engine when the
// container is registered.
func (c *Container) Seed(current node.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = current
	c.seeded = true
}

// Apply runs one sanctioned mutation: updater produces the next state value,
// the evaluator re-derives the subtree, and on success both are committed.
// It returns the superseded and the new subtree for the engine to diff.
//
// Any failure, an evaluator error, a panic in the updater or evaluator, or a
// root key mismatch, leaves the state value and subtree at their pre-mutation
// values. Called by the engine on its drain loop; not for direct use.
func (c *Container) Apply(updater Updater) (previous, next node.Node, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == TornDown {
		return node.Node{}, node.Node{}, &wefterrors.TornDownError{Owner: c.owner.String()}
	}

	nextValue, subtree, err := c.evaluate(updater)
	if err != nil {
		return node.Node{}, node.Node{}, err
	}
	if subtree.Identity(0) != c.owner {
		return node.Node{}, node.Node{}, &wefterrors.WeftError{
			Op:   "state.Apply",
			Kind: wefterrors.KindStructure,
			Err:  fmt.Errorf("evaluator for %q produced root identity %q", c.owner, subtree.Identity(0)),
		}
	}
	if err := node.Validate(subtree); err != nil {
		return node.Node{}, node.Node{}, err
	}

	previous = c.current
	c.value = nextValue
	c.current = subtree
	c.seeded = true
	return previous, subtree, nil
}

// evaluate runs updater and the evaluator with panic recovery, leaving the
// container untouched.
func (c *Container) evaluate(updater Updater) (nextValue State, subtree node.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			evalErr := &wefterrors.EvaluatorError{
				Owner:      c.owner.String(),
				Recovered:  r,
				StackTrace: wefterrors.CaptureStack(),
				Timestamp:  time.Now(),
			}
			wefterrors.ReportEvaluatorError(evalErr)
			err = evalErr
		}
	}()

	nextValue = c.value.Clone()
	if updater != nil {
		nextValue = updater(nextValue)
	}
	subtree, evalErr := c.evaluator(nextValue)
	if evalErr != nil {
		err = &wefterrors.EvaluatorError{
			Owner:     c.owner.String(),
			Err:       evalErr,
			Timestamp: time.Now(),
		}
		return nil, node.Node{}, err
	}
	return nextValue, subtree, nil
}

// TearDown discards the state value and makes the container inert. Called by
// the engine when a diff removes the owning identity. Idempotent.
func (c *Container) TearDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == TornDown {
		return
	}
	c.status = TornDown
	c.value = nil
	c.current = node.Node{}
	c.seeded = false
}
