package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "show",
		Short: "Print a scene outline",
		Long: `Show parses a scene file and prints its tree as an indented outline,
one node per line with kind, key, and props.`,
		Usage: "weft show <scene.yaml>",
		Run:   runShowCmd,
	})
}

func runShowCmd(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("show expects exactly one scene file")
	}
	return runShow(os.Stdout, args[0])
}

func runShow(w io.Writer, path string) error {
	root, err := scene.LoadFile(path)
	if err != nil {
		return err
	}
	printOutline(w, root, 0)
	return nil
}

func printOutline(w io.Writer, n node.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	line := indent + n.Kind
	if n.Key != "" {
		line += " [" + n.Key + "]"
	}
	if len(n.Props) > 0 {
		parts := make([]string, 0, len(n.Props))
		for _, p := range n.Props {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Value))
		}
		line += " {" + strings.Join(parts, ", ") + "}"
	}
	fmt.Fprintln(w, line)
	for _, child := range n.Children {
		printOutline(w, child, depth+1)
	}
}
