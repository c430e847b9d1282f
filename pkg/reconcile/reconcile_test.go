package reconcile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	wefterrors "github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/node"
)

var identityCmp = cmp.AllowUnexported(node.Identity{})

// recordingUnmounter captures teardown notifications.
type recordingUnmounter struct {
	unmounted []node.Identity
}

func (r *recordingUnmounter) Unmount(id node.Identity) {
	r.unmounted = append(r.unmounted, id)
}

func screen(children ...node.Node) node.Node {
	return node.New("column", "screen", nil, children...)
}

func text(key, content string) node.Node {
	return node.New("text", key, node.Props{node.P("content", content)})
}

func mustDiff(t *testing.T, rec *Reconciler, previous, next *node.Node) *DirtySet {
	t.Helper()
	dirty, err := rec.Diff(previous, next)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	return dirty
}

func TestDiff_SelfIsEmpty(t *testing.T) {
	tree := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk")),
		text("footer", "1 task"),
	)
	var rec Reconciler
	dirty := mustDiff(t, &rec, &tree, &tree)
	if !dirty.Empty() {
		t.Errorf("diffing a tree against itself must be empty, got:\n%s", dirty)
	}
}

func TestDiff_BothAbsent(t *testing.T) {
	var rec Reconciler
	dirty := mustDiff(t, &rec, nil, nil)
	if !dirty.Empty() {
		t.Error("diffing two absent trees must be a no-op")
	}
}

func TestDiff_AbsentToPresent_InsertsRootOnly(t *testing.T) {
	tree := screen(text("header", "My Tasks"), text("footer", "0 tasks"))
	var rec Reconciler
	dirty := mustDiff(t, &rec, nil, &tree)

	want := []Change{{Identity: node.Key("screen"), Kind: "column", Op: OpInserted}}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("inserted root mismatch (-want +got):\n%s", d)
	}
}

func TestDiff_PresentToAbsent_RemovesAndUnmountsSubtree(t *testing.T) {
	tree := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk")),
	)
	unmounter := &recordingUnmounter{}
	rec := Reconciler{Unmounter: unmounter}
	dirty := mustDiff(t, &rec, &tree, nil)

	want := []Change{{Identity: node.Key("screen"), Kind: "column", Op: OpRemoved}}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("removed root mismatch (-want +got):\n%s", d)
	}
	// Every node of the removed subtree must be unmounted, root first.
	wantUnmounted := []node.Identity{
		node.Key("screen"), node.Key("header"), node.Key("list"), node.Key("task-0"),
	}
	if d := cmp.Diff(wantUnmounted, unmounter.unmounted, identityCmp); d != "" {
		t.Errorf("unmount order mismatch (-want +got):\n%s", d)
	}
}

func TestDiff_RootIdentityMismatch(t *testing.T) {
	a := node.New("column", "screen", nil)
	b := node.New("column", "dialog", nil)
	var rec Reconciler
	if _, err := rec.Diff(&a, &b); !errors.Is(err, ErrRootMismatch) {
		t.Errorf("expected ErrRootMismatch, got %v", err)
	}
}

func TestDiff_PropChangeMarksNodeOnly(t *testing.T) {
	previous := screen(
		text("header", "My Tasks"),
		node.New("list", "list", node.Props{node.P("count", 1)}, text("task-0", "buy milk")),
		text("footer", "1 task"),
	)
	next := screen(
		text("header", "My Tasks"),
		node.New("list", "list", node.Props{node.P("count", 2)}, text("task-0", "buy milk"), text("task-1", "write report")),
		text("footer", "1 task"),
	)
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)

	want := []Change{
		{Identity: node.Key("list"), Kind: "list", Op: OpChanged},
		{Identity: node.Key("task-1"), Kind: "text", Op: OpInserted},
	}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("dirty set mismatch (-want +got):\n%s", d)
	}
	if dirty.Has(node.Key("header"), OpChanged) || dirty.Has(node.Key("footer"), OpChanged) {
		t.Error("untouched siblings must not appear in the dirty set")
	}
}

func TestDiff_AlwaysRecursesIntoUnchangedNodes(t *testing.T) {
	previous := screen(node.New("list", "list", nil, text("task-0", "buy milk")))
	next := screen(node.New("list", "list", nil, text("task-0", "buy oat milk")))
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)

	if !dirty.Has(node.Key("task-0"), OpChanged) {
		t.Error("descendant change must be found even when every ancestor is unchanged")
	}
	if dirty.Has(node.Key("list"), OpChanged) {
		t.Error("unchanged ancestor must not be marked")
	}
}

func TestDiff_InsertLocality(t *testing.T) {
	base := []node.Node{text("a", "1"), text("b", "2"), text("c", "3")}
	withNew := []node.Node{text("a", "1"), text("b", "2"), text("fresh", "new"), text("c", "3")}

	previous := screen(base...)
	next := screen(withNew...)
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)

	want := []Change{{Identity: node.Key("fresh"), Kind: "text", Op: OpInserted}}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("inserting a fresh identity must produce exactly one entry (-want +got):\n%s", d)
	}
}

func TestDiff_Symmetry(t *testing.T) {
	t1 := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk")),
		text("footer", "1 task"),
	)
	t2 := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk"), text("task-1", "write report")),
	)
	var rec Reconciler
	forward := mustDiff(t, &rec, &t1, &t2)
	backward := mustDiff(t, &rec, &t2, &t1)

	tagged := func(d *DirtySet, op Op) map[node.Identity]bool {
		out := make(map[node.Identity]bool)
		for _, c := range d.Changes() {
			if c.Op == op {
				out[c.Identity] = true
			}
		}
		return out
	}
	if d := cmp.Diff(tagged(forward, OpInserted), tagged(backward, OpRemoved), identityCmp); d != "" {
		t.Errorf("forward INSERTED != backward REMOVED (-fwd +bwd):\n%s", d)
	}
	if d := cmp.Diff(tagged(forward, OpRemoved), tagged(backward, OpInserted), identityCmp); d != "" {
		t.Errorf("forward REMOVED != backward INSERTED (-fwd +bwd):\n%s", d)
	}
}

func TestDiff_RemovalTriggersUnmount(t *testing.T) {
	previous := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk")),
		text("footer", "1 task"),
	)
	next := screen(
		text("header", "My Tasks"),
		node.New("list", "list", nil, text("task-0", "buy milk")),
	)
	unmounter := &recordingUnmounter{}
	rec := Reconciler{Unmounter: unmounter}
	dirty := mustDiff(t, &rec, &previous, &next)

	want := []Change{{Identity: node.Key("footer"), Kind: "text", Op: OpRemoved}}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("dirty set mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]node.Identity{node.Key("footer")}, unmounter.unmounted, identityCmp); d != "" {
		t.Errorf("unmounted mismatch (-want +got):\n%s", d)
	}
}

func TestDiff_KindChangeIsRemoveThenInsert(t *testing.T) {
	previous := screen(node.New("list", "list", nil, text("task-0", "buy milk")))
	next := screen(node.New("grid", "list", nil, text("task-0", "buy milk")))
	unmounter := &recordingUnmounter{}
	rec := Reconciler{Unmounter: unmounter}
	dirty := mustDiff(t, &rec, &previous, &next)

	want := []Change{
		{Identity: node.Key("list"), Kind: "list", Op: OpRemoved},
		{Identity: node.Key("list"), Kind: "grid", Op: OpInserted},
	}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("kind change mismatch (-want +got):\n%s", d)
	}
	// The old subtree is discarded wholesale.
	wantUnmounted := []node.Identity{node.Key("list"), node.Key("task-0")}
	if d := cmp.Diff(wantUnmounted, unmounter.unmounted, identityCmp); d != "" {
		t.Errorf("unmounted mismatch (-want +got):\n%s", d)
	}
	// Descendants of the replaced subtree are not listed individually.
	if dirty.Has(node.Key("task-0"), OpRemoved) || dirty.Has(node.Key("task-0"), OpInserted) {
		t.Error("descendants of a replaced root must not appear in the dirty set")
	}
}

func TestDiff_DuplicateIdentityAbortsWithNilResult(t *testing.T) {
	previous := screen(text("task-1", "a"))
	next := screen(text("task-1", "a"), text("task-1", "b"))
	var rec Reconciler
	dirty, err := rec.Diff(&previous, &next)
	if err == nil {
		t.Fatal("expected duplicate identity error")
	}
	var dup *wefterrors.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dirty != nil {
		t.Error("no partial dirty set may escape a failed diff")
	}
}

func TestDiff_KeyedReorderProducesNoChanges(t *testing.T) {
	previous := screen(text("a", "1"), text("b", "2"), text("c", "3"))
	next := screen(text("c", "3"), text("a", "1"), text("b", "2"))
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)
	if !dirty.Empty() {
		t.Errorf("reordering keyed children must not dirty them, got:\n%s", dirty)
	}
}

func TestDiff_OrderFollowsNextChildren(t *testing.T) {
	previous := screen(text("a", "1"), text("gone", "x"), text("b", "2"))
	next := screen(text("new-1", "n"), text("a", "changed"), text("new-2", "n"))
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)

	want := []Change{
		{Identity: node.Key("new-1"), Kind: "text", Op: OpInserted},
		{Identity: node.Key("a"), Kind: "text", Op: OpChanged},
		{Identity: node.Key("new-2"), Kind: "text", Op: OpInserted},
		{Identity: node.Key("gone"), Kind: "text", Op: OpRemoved},
		{Identity: node.Key("b"), Kind: "text", Op: OpRemoved},
	}
	if d := cmp.Diff(want, dirty.Changes(), identityCmp); d != "" {
		t.Errorf("ordering mismatch (-want +got):\n%s", d)
	}
}

func TestDirtySet_String(t *testing.T) {
	previous := screen(text("a", "1"), text("gone", "x"))
	next := screen(text("a", "2"), text("new", "n"))
	var rec Reconciler
	dirty := mustDiff(t, &rec, &previous, &next)

	want := "~ a (text)\n+ new (text)\n- gone (text)\n"
	if got := dirty.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	var empty DirtySet
	if got := empty.String(); got != "(no changes)\n" {
		t.Errorf("empty String() = %q", got)
	}
}
