// Package enginetest provides an isolated harness for exercising the engine
// without a real renderer: a recording renderer captures every DirtySet as a
// frame, and Pump drives the mutation queue deterministically from the test
// goroutine.
package enginetest

import (
	"sync"
	"testing"

	"github.com/go-weft/weft/pkg/engine"
	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/reconcile"
)

// RecordingRenderer captures each applied DirtySet as one frame.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames []*reconcile.DirtySet
}

// Apply records the DirtySet.
func (r *RecordingRenderer) Apply(dirty *reconcile.DirtySet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, dirty)
}

// Frames returns every recorded frame in application order.
func (r *RecordingRenderer) Frames() []*reconcile.DirtySet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*reconcile.DirtySet, len(r.frames))
	copy(out, r.frames)
	return out
}

// LastFrame returns the most recent frame, or nil when none was applied.
func (r *RecordingRenderer) LastFrame() *reconcile.DirtySet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// FrameCount returns how many frames were applied.
func (r *RecordingRenderer) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// OpsFor gathers every tag recorded for id across all frames, in order.
func (r *RecordingRenderer) OpsFor(id node.Identity) []reconcile.Op {
	var ops []reconcile.Op
	for _, frame := range r.Frames() {
		ops = append(ops, frame.OpsFor(id)...)
	}
	return ops
}

// Harness bundles an engine with a recording renderer and cleans both up via
// t.Cleanup.
type Harness struct {
	Engine   *engine.Engine
	Renderer *RecordingRenderer
}

// NewHarness creates a harness whose engine is closed when the test ends.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	renderer := &RecordingRenderer{}
	h := &Harness{
		Engine:   engine.New(engine.Options{Renderer: renderer}),
		Renderer: renderer,
	}
	t.Cleanup(func() { h.Engine.Close() })
	return h
}

// Pump flushes the queue and returns how many new frames the flush produced.
func (h *Harness) Pump() int {
	before := h.Renderer.FrameCount()
	h.Engine.Flush()
	return h.Renderer.FrameCount() - before
}
