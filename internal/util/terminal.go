package util

import "golang.org/x/term"

// IsTerminal reports whether fd is attached to a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TerminalWidth returns the column width of the terminal behind fd,
// or fallback when fd is not a terminal
func TerminalWidth(fd uintptr, fallback int) int {
	width, _, err := term.GetSize(int(fd))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
