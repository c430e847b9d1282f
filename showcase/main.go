// Package main demonstrates the engine on a small to-do screen: a header,
// a task list with its own state container, and a footer. Each mutation
// rebuilds only the subtree that owns the state; the printed frames show
// that the header and footer never get re-materialized when the list
// changes. The second act removes the footer from the tree and shows its
// container rejecting any further mutation.
package main

import (
	"fmt"
	"log"

	"github.com/go-weft/weft/pkg/engine"
	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/reconcile"
	"github.com/go-weft/weft/pkg/state"
)

func taskList(tasks []string) node.Node {
	children := make([]node.Node, 0, len(tasks))
	for i, task := range tasks {
		children = append(children, node.New("text", fmt.Sprintf("task-%d", i), node.Props{
			node.P("content", task),
		}))
	}
	return node.New("list", "list", node.Props{node.P("count", len(tasks))}, children...)
}

func screen(tasks []string) node.Node {
	return node.New("column", "screen", nil,
		node.New("text", "header", node.Props{node.P("content", "My Tasks")}),
		taskList(tasks),
		node.New("text", "footer", node.Props{node.P("content", fmt.Sprintf("%d tasks", len(tasks)))}),
	)
}

func main() {
	frame := 0
	eng := engine.New(engine.Options{
		Renderer: engine.RendererFunc(func(dirty *reconcile.DirtySet) {
			frame++
			fmt.Printf("frame %d:\n%s\n", frame, dirty)
		}),
	})
	defer eng.Close()

	tasks := []string{"buy milk", "write report"}
	if err := eng.SetRoot(screen(tasks)); err != nil {
		log.Fatal(err)
	}

	// The list owns its tasks; rebuilding it never touches header or footer.
	_, err := eng.Register("list", state.State{"tasks": tasks}, func(s state.State) (node.Node, error) {
		return taskList(s["tasks"].([]string)), nil
	})
	if err != nil {
		log.Fatal(err)
	}

	append1 := eng.Mutate("list", func(s state.State) state.State {
		s["tasks"] = append(s["tasks"].([]string), "call the plumber")
		return s
	})
	append2 := eng.Mutate("list", func(s state.State) state.State {
		s["tasks"] = append(s["tasks"].([]string), "water the plants")
		return s
	})
	cancelled := eng.Mutate("list", func(s state.State) state.State {
		s["tasks"] = nil
		return s
	})
	cancelled.Cancel()

	eng.Flush()

	for _, entry := range []struct {
		label  string
		ticket *state.Ticket
	}{
		{"append #1", append1},
		{"append #2", append2},
		{"cancelled", cancelled},
	} {
		fmt.Printf("%s: %s\n", entry.label, entry.ticket.Status())
	}

	// Second act: the footer gets its own container, then its subtree is
	// removed from the tree; the orphaned container rejects everything
	// after that.
	footerProps := node.Props{node.P("content", "2 tasks")}
	_, err = eng.Register("footer", state.State{"done": 0}, func(s state.State) (node.Node, error) {
		return node.New("text", "footer", footerProps.With("done", s["done"].(int))), nil
	})
	if err != nil {
		log.Fatal(err)
	}
	eng.Mutate("footer", func(s state.State) state.State {
		s["done"] = 1
		return s
	})
	eng.Flush()

	current, _ := eng.Root()
	trimmed := current
	trimmed.Children = current.Children[:2] // header and list stay
	if err := eng.SetRoot(trimmed); err != nil {
		log.Fatal(err)
	}

	late := eng.Mutate("footer", func(s state.State) state.State {
		s["done"] = 2
		return s
	})
	eng.Flush()
	fmt.Printf("late footer mutation: %s: %v\n", late.Status(), late.Err())
}
