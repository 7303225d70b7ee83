// Package terminal provides utilities for terminal operations such as clearing text.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether stdout is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or 80 when it cannot be determined.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// LinesFor returns how many rows textLength characters occupy at the given width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	if textLength <= 0 {
		return 1
	}
	return (textLength + width - 1) / width
}

// ClearPreviousLines wipes a prompt and the user's answer after Enter was
// pressed, so the REPL can reprint the utterance as a styled transcript entry.
// It does nothing when stdout is not a terminal.
func ClearPreviousLines(textLength int) {
	if !IsInteractive() {
		return
	}
	clearLines(os.Stdout, LinesFor(textLength, Width()))
}

// clearLines clears the current line plus n lines above it. After Enter the
// cursor sits on a fresh line below the input, hence the extra one.
func clearLines(w io.Writer, n int) {
	total := n + 1
	for i := 0; i < total; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < total-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
