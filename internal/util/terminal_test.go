package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTerminalWidthFallsBackOffTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "not-a-tty"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f.Fd()) {
		t.Fatal("a regular file should not report as a terminal")
	}
	if got := TerminalWidth(f.Fd(), 100); got != 100 {
		t.Errorf("TerminalWidth = %d, want fallback 100", got)
	}
}
