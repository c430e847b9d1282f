package enginetest

import (
	"testing"

	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/reconcile"
	"github.com/go-weft/weft/pkg/state"
)

func TestHarness_RecordsFramesPerMutation(t *testing.T) {
	h := NewHarness(t)
	root := node.New("text", "counter", node.Props{node.P("value", 0)})
	if err := h.Engine.SetRoot(root); err != nil {
		t.Fatalf("SetRoot failed: %v", err)
	}
	if h.Renderer.FrameCount() != 1 {
		t.Fatalf("expected one initial frame, got %d", h.Renderer.FrameCount())
	}

	_, err := h.Engine.Register("counter", state.State{"value": 0}, func(s state.State) (node.Node, error) {
		return node.New("text", "counter", node.Props{node.P("value", s["value"].(int))}), nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	h.Engine.Mutate("counter", func(s state.State) state.State {
		s["value"] = 1
		return s
	})
	h.Engine.Mutate("counter", func(s state.State) state.State {
		s["value"] = 2
		return s
	})
	if frames := h.Pump(); frames != 2 {
		t.Errorf("Pump reported %d frames, want 2", frames)
	}

	ops := h.Renderer.OpsFor(node.Key("counter"))
	want := []reconcile.Op{reconcile.OpInserted, reconcile.OpChanged, reconcile.OpChanged}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}

	if h.Renderer.LastFrame() != h.Renderer.Frames()[2] {
		t.Error("LastFrame must return the newest frame")
	}
}

func TestRecordingRenderer_EmptyState(t *testing.T) {
	r := &RecordingRenderer{}
	if r.LastFrame() != nil {
		t.Error("LastFrame on a fresh renderer must be nil")
	}
	if r.FrameCount() != 0 {
		t.Error("FrameCount on a fresh renderer must be 0")
	}
}
