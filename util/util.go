// Package util provides small helpers shared by the CLI commands.
package util

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anisan-cli/adplay/filesystem"
	"golang.org/x/term"
)

// Quantify returns a pluralized string representation of a count and its associated labels.
func Quantify(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Capitalize transforms the first rune of a string to its uppercase equivalent.
func Capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FormatSeconds renders a position as h:mm:ss, or m:ss under an hour.
func FormatSeconds(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TerminalWidth returns the width of stdout, or 0 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// Truncate cuts s to at most width runes. A width of 0 disables truncation.
func Truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// PrintErasable prints an ephemeral message to the terminal and returns a closure to clear it.
func PrintErasable(msg string) (eraser func()) {
	msg = Truncate(msg, TerminalWidth())
	fmt.Fprintf(os.Stdout, "\r%s", msg)
	return func() {
		fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", len([]rune(msg))))
	}
}

// Delete recursively removes a file or directory using the virtualized filesystem API.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
