// Package terminal provides utilities for terminal operations such as clearing
// an interactive prompt once the user has answered it.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// defaultWidth is assumed when the terminal size is unavailable.
const defaultWidth = 80

// ClearPreviousLines clears a prompt of textLength characters from stdout,
// together with the empty line the cursor moved to when Enter was pressed.
func ClearPreviousLines(textLength int) {
	width := defaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	clearLines(os.Stdout, LinesUsed(textLength, width)+1)
}

// LinesUsed returns how many terminal rows textLength characters occupy at
// the given width. An empty prompt still occupies one row.
func LinesUsed(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	n := (textLength + width - 1) / width
	if n < 1 {
		return 1
	}
	return n
}

// clearLines clears n lines, moving the cursor up between them.
func clearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // start of line, clear it
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A") // up one line
		}
	}
}
