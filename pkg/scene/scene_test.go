package scene

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	wefterrors "github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/node"
)

const todoScene = `scene: v1.0.0
root:
  kind: column
  key: screen
  props: {title: Todos}
  children:
    - kind: text
      key: header
      props: {content: "My Tasks"}
    - kind: list
      key: list
      props: {count: 2}
      children:
        - kind: text
          key: task-0
          props: {content: "buy milk", done: false}
        - kind: text
          key: task-1
          props: {content: "write report", done: true}
    - kind: text
      key: footer
      props: {content: "2 tasks"}
`

func TestLoad_TodoScene(t *testing.T) {
	root, err := Load(strings.NewReader(todoScene))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if root.Kind != "column" || root.Key != "screen" {
		t.Fatalf("root = %s [%s]", root.Kind, root.Key)
	}
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children, want 3", len(root.Children))
	}

	list, ok := node.FindByKey(root, "list")
	if !ok {
		t.Fatal("list missing")
	}
	if count, _ := list.Props.Get("count"); count != 2 {
		t.Errorf("list count = %v, want 2", count)
	}

	task0, _ := node.FindByKey(root, "task-0")
	wantProps := node.Props{node.P("content", "buy milk"), node.P("done", false)}
	if d := cmp.Diff(wantProps, task0.Props); d != "" {
		t.Errorf("task-0 props mismatch (-want +got):\n%s", d)
	}
}

func TestLoad_PreservesPropOrder(t *testing.T) {
	doc := `scene: v1.0.0
root:
  kind: text
  key: t
  props:
    zulu: 1
    alpha: 2
    mike: 3
`
	root, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := node.Props{node.P("zulu", 1), node.P("alpha", 2), node.P("mike", 3)}
	if d := cmp.Diff(want, root.Props); d != "" {
		t.Errorf("prop order not preserved (-want +got):\n%s", d)
	}
}

func TestLoad_VersionGate(t *testing.T) {
	cases := []struct {
		name    string
		version string
	}{
		{"missing", ""},
		{"not semver", "one"},
		{"wrong major", "v2.0.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := "scene: \"" + tc.version + "\"\nroot: {kind: text}\n"
			if tc.version == "" {
				doc = "root: {kind: text}\n"
			}
			_, err := Load(strings.NewReader(doc))
			if !errors.Is(err, ErrUnsupportedVersion) {
				t.Errorf("err = %v, want ErrUnsupportedVersion", err)
			}
		})
	}

	// A later v1 point release is accepted.
	if _, err := Load(strings.NewReader("scene: v1.3.0\nroot: {kind: text}\n")); err != nil {
		t.Errorf("v1.3.0 should load, got %v", err)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	doc := `scene: v1.0.0
root:
  kind: text
  colour: red
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Error("unknown node field must be rejected")
	}
	if _, err := Load(strings.NewReader("scene: v1.0.0\nextra: true\nroot: {kind: text}\n")); err == nil {
		t.Error("unknown document field must be rejected")
	}
}

func TestLoad_RequiresKind(t *testing.T) {
	doc := `scene: v1.0.0
root:
  key: screen
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Error("a node without a kind must be rejected")
	}
}

func TestLoad_RejectsDuplicateSiblingKeys(t *testing.T) {
	doc := `scene: v1.0.0
root:
  kind: list
  key: list
  children:
    - {kind: text, key: task-1}
    - {kind: text, key: task-1}
`
	_, err := Load(strings.NewReader(doc))
	var dup *wefterrors.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dup.Identity != "task-1" {
		t.Errorf("duplicate identity = %q, want task-1", dup.Identity)
	}
}

func TestDump_RoundTrips(t *testing.T) {
	original, err := Load(strings.NewReader(todoScene))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Dump(&buf, original); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	reloaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if d := cmp.Diff(original, reloaded); d != "" {
		t.Errorf("round trip mismatch (-original +reloaded):\n%s", d)
	}
}
