package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-weft/weft/pkg/reconcile"
	"github.com/go-weft/weft/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "diff",
		Short: "Diff two scenes",
		Long: `Diff loads two scene files sharing a root identity and prints the dirty
set an external renderer would have to apply to turn the first into the
second: "+" inserted, "-" removed, "~" changed.`,
		Usage: "weft diff <old.yaml> <new.yaml>",
		Run:   runDiffCmd,
	})
}

func runDiffCmd(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("diff expects exactly two scene files")
	}
	return runDiff(os.Stdout, args[0], args[1])
}

func runDiff(w io.Writer, oldPath, newPath string) error {
	previous, err := scene.LoadFile(oldPath)
	if err != nil {
		return err
	}
	next, err := scene.LoadFile(newPath)
	if err != nil {
		return err
	}

	var rec reconcile.Reconciler
	dirty, err := rec.Diff(&previous, &next)
	if err != nil {
		return err
	}
	io.WriteString(w, dirty.String())
	return nil
}
