// internal/ui/terminal.go

package ui

import (
	"os"

	mobyterm "github.com/moby/term"
	"golang.org/x/term"
)

const (
	defaultWidth  = 100
	defaultHeight = 24
)

// StdinIsTerminal reports whether the dashboard can take over the terminal.
func StdinIsTerminal() bool {
	_, isTerminal := mobyterm.GetFdInfo(os.Stdin)
	return isTerminal
}

// TerminalSize returns the size of stdout, or a default when it is not a terminal.
func TerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return defaultWidth, defaultHeight
	}
	return width, height
}
