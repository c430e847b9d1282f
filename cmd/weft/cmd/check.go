package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-weft/weft/pkg/node"
	"github.com/go-weft/weft/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "check",
		Short: "Validate a scene file",
		Long: `Check parses a scene file and validates its structure: format version,
node shapes, and sibling identity uniqueness.`,
		Usage: "weft check <scene.yaml>",
		Run:   runCheckCmd,
	})
}

func runCheckCmd(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("check expects exactly one scene file")
	}
	return runCheck(os.Stdout, args[0])
}

func runCheck(w io.Writer, path string) error {
	root, err := scene.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: ok (%d nodes)\n", path, countNodes(root))
	return nil
}

func countNodes(n node.Node) int {
	total := 1
	for _, child := range n.Children {
		total += countNodes(child)
	}
	return total
}
