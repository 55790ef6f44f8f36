// Package render writes reports for people (aligned text, optionally
// coloured) and for programs (JSON).
package render

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	ansiBlue   = "\033[94m"
	ansiGreen  = "\033[92m"
	ansiPurple = "\033[95m"
	ansiReset  = "\033[00m"
)

// Stdout returns a writer for standard output that translates ANSI colour
// codes where the console needs it, and whether colour should be used.
// Colour is off when stdout is not a terminal or NO_COLOR is set.
func Stdout() (io.Writer, bool) {
	return colorable.NewColorableStdout(), ColorEnabled(os.Stdout)
}

// ColorEnabled reports whether f is a terminal that should get colour.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(s, code string, color bool) string {
	if !color {
		return s
	}
	return code + s + ansiReset
}
