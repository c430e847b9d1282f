// Package reconcile implements the identity-keyed structural diff between two
// immutable node trees.
//
// Given a previous and a next snapshot sharing a root identity, Diff computes
// the minimal set of subtree replacements an external renderer must apply:
// which identities were inserted, removed, or changed in place. Identity,
// not position, decides whether two children are "the same" node across
// rebuilds, so reordering keyed children never discards their subtrees.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/go-weft/weft/pkg/node"
)

// ErrRootMismatch is returned when the two trees handed to Diff do not share
// a root identity. The reconciler never diffs unrelated trees.
var ErrRootMismatch = errors.New("previous and next trees have different root identities")

// Unmounter is notified of every node leaving the tree during a diff, the
// removed subtree roots and all their descendants, so state containers
// attached anywhere inside a removed subtree can be torn down.
type Unmounter interface {
	Unmount(id node.Identity)
}

// Reconciler diffs node trees. The zero value is ready to use.
type Reconciler struct {
	// Unmounter, when set, receives removal notifications. Renderer-facing
	// output never lists a removed root's descendants; the Unmounter does.
	Unmounter Unmounter
}

// Diff compares two snapshots of the same subtree and returns the DirtySet
// the renderer must apply to turn previous into next.
//
// Either argument may be nil for "absent": (nil, nil) is a no-op, (nil, T)
// inserts T's root, (T, nil) removes it. When both are present their root
// identities must match. A kind change for the same identity is a full
// subtree discard: the entry appears as removed then inserted, and the old
// subtree is unmounted.
//
// Duplicate identities within any compared sibling list abort the diff with
// an error; the returned DirtySet is nil and no partial result escapes.
func (r *Reconciler) Diff(previous, next *node.Node) (*DirtySet, error) {
	dirty := &DirtySet{}
	switch {
	case previous == nil && next == nil:
		return dirty, nil
	case previous == nil:
		dirty.add(rootIdentity(*next), next.Kind, OpInserted)
		return dirty, nil
	case next == nil:
		id := rootIdentity(*previous)
		dirty.add(id, previous.Kind, OpRemoved)
		r.unmountTree(*previous, id)
		return dirty, nil
	}

	prevID, nextID := rootIdentity(*previous), rootIdentity(*next)
	if prevID != nextID {
		return nil, fmt.Errorf("reconcile: %q vs %q: %w", prevID, nextID, ErrRootMismatch)
	}
	if err := r.compare(*previous, *next, prevID, dirty); err != nil {
		return nil, err
	}
	return dirty, nil
}

// compare diffs two present nodes known to share identity id.
func (r *Reconciler) compare(previous, next node.Node, id node.Identity, dirty *DirtySet) error {
	if previous.Kind != next.Kind {
		// Preserving state across a type change is undefined; treat it as a
		// full subtree discard and rebuild.
		dirty.add(id, previous.Kind, OpRemoved)
		dirty.add(id, next.Kind, OpInserted)
		r.unmountTree(previous, id)
		return nil
	}
	if !previous.Equals(next) {
		dirty.add(id, next.Kind, OpChanged)
	}
	// Always recurse: descendant state may have changed even when the node
	// itself is identical.
	return r.compareChildren(previous, next, dirty)
}

func (r *Reconciler) compareChildren(previous, next node.Node, dirty *DirtySet) error {
	if err := node.ValidateSiblings(previous.Kind, previous.Children); err != nil {
		return err
	}
	if err := node.ValidateSiblings(next.Kind, next.Children); err != nil {
		return err
	}

	prevByID := make(map[node.Identity]node.Node, len(previous.Children))
	for i, child := range previous.Children {
		prevByID[child.Identity(i)] = child
	}
	nextSeen := make(map[node.Identity]bool, len(next.Children))

	// Next order drives materialization order.
	for i, child := range next.Children {
		id := child.Identity(i)
		nextSeen[id] = true
		prevChild, ok := prevByID[id]
		if !ok {
			dirty.add(id, child.Kind, OpInserted)
			continue
		}
		if err := r.compare(prevChild, child, id, dirty); err != nil {
			return err
		}
	}

	// Removals trail the sibling list, in previous order.
	for i, child := range previous.Children {
		id := child.Identity(i)
		if nextSeen[id] {
			continue
		}
		dirty.add(id, child.Kind, OpRemoved)
		r.unmountTree(child, id)
	}
	return nil
}

// unmountTree notifies the Unmounter of a removed subtree root and every
// descendant, depth-first.
func (r *Reconciler) unmountTree(n node.Node, id node.Identity) {
	if r.Unmounter == nil {
		return
	}
	r.Unmounter.Unmount(id)
	for i, child := range n.Children {
		r.unmountTree(child, child.Identity(i))
	}
}

func rootIdentity(n node.Node) node.Identity {
	return n.Identity(0)
}
