package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	wefterrors "github.com/go-weft/weft/pkg/errors"
)

func TestRunCheck_ValidScene(t *testing.T) {
	var buf bytes.Buffer
	if err := runCheck(&buf, filepath.Join("testdata", "old.yaml")); err != nil {
		t.Fatalf("runCheck failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "ok (6 nodes)") {
		t.Errorf("output = %q, want 6 nodes", got)
	}
}

func TestRunCheck_DuplicateKeys(t *testing.T) {
	var buf bytes.Buffer
	err := runCheck(&buf, filepath.Join("testdata", "duplicate.yaml"))
	var dup *wefterrors.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
}

func TestRunShow_Outline(t *testing.T) {
	var buf bytes.Buffer
	if err := runShow(&buf, filepath.Join("testdata", "old.yaml")); err != nil {
		t.Fatalf("runShow failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("outline has %d lines, want 6:\n%s", len(lines), buf.String())
	}
	if lines[0] != "column [screen]" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  text [header]") {
		t.Errorf("second line = %q", lines[1])
	}
}
