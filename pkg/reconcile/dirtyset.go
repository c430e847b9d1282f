package reconcile

import (
	"strings"

	"github.com/go-weft/weft/pkg/node"
)

// Op tags a DirtySet entry with what happened to the node.
type Op int

const (
	// OpChanged means the node's own kind/props differ between trees.
	OpChanged Op = iota
	// OpInserted means the node's identity is new in the next tree. The tag
	// covers the whole subtree; descendants are not listed individually.
	OpInserted
	// OpRemoved means the node's identity is gone from the next tree. The
	// tag covers the whole subtree; descendants are not listed individually.
	OpRemoved
)

func (op Op) String() string {
	switch op {
	case OpChanged:
		return "changed"
	case OpInserted:
		return "inserted"
	case OpRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one DirtySet entry: an identity whose subtree must be
// re-materialized, tagged with what happened to it.
type Change struct {
	Identity node.Identity
	Kind     string
	Op       Op
}

// DirtySet is the reconciler's output: the ordered set of identities an
// external renderer must re-materialize. Entry order follows the next tree's
// child order; removals for a sibling list trail its surviving entries.
// A DirtySet is transient, recomputed on every diff.
type DirtySet struct {
	changes []Change
}

// Changes returns the entries in materialization order. The returned slice
// is owned by the DirtySet and must not be mutated.
func (d *DirtySet) Changes() []Change {
	if d == nil {
		return nil
	}
	return d.changes
}

// Len returns the number of entries.
func (d *DirtySet) Len() int {
	if d == nil {
		return 0
	}
	return len(d.changes)
}

// Empty reports whether nothing changed.
func (d *DirtySet) Empty() bool { return d.Len() == 0 }

// Has reports whether the set contains an entry for id with the given tag.
func (d *DirtySet) Has(id node.Identity, op Op) bool {
	if d == nil {
		return false
	}
	for _, c := range d.changes {
		if c.Identity == id && c.Op == op {
			return true
		}
	}
	return false
}

// OpsFor returns every tag recorded for id, in entry order. A kind change
// produces both OpRemoved and OpInserted for the same identity.
func (d *DirtySet) OpsFor(id node.Identity) []Op {
	if d == nil {
		return nil
	}
	var ops []Op
	for _, c := range d.changes {
		if c.Identity == id {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// String renders the set one entry per line in a stable textual form:
// "~" changed, "+" inserted, "-" removed, then identity and kind.
func (d *DirtySet) String() string {
	if d.Empty() {
		return "(no changes)\n"
	}
	var sb strings.Builder
	for _, c := range d.changes {
		switch c.Op {
		case OpInserted:
			sb.WriteString("+ ")
		case OpRemoved:
			sb.WriteString("- ")
		default:
			sb.WriteString("~ ")
		}
		sb.WriteString(c.Identity.String())
		sb.WriteString(" (")
		sb.WriteString(c.Kind)
		sb.WriteString(")\n")
	}
	return sb.String()
}

func (d *DirtySet) add(id node.Identity, kind string, op Op) {
	d.changes = append(d.changes, Change{Identity: id, Kind: kind, Op: op})
}
