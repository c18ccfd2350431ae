package plinstall

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// color-compatible printer interface (works with *color.Theme, color.RGBColor and color.Tag)
type colorPrinter interface {
	Sprintf(format string, a ...any) string
}

// cFprintf prints with a colored style or falls back to plain fmt when nil
func cFprintf(w io.Writer, p colorPrinter, format string, a ...any) {
	if p == nil {
		fmt.Fprintf(w, format, a...)
		return
	}
	fmt.Fprint(w, p.Sprintf(format, a...))
}

// arrowf prints the "-> " marker followed by a styled message and a newline.
func arrowf(w io.Writer, p colorPrinter, format string, a ...any) {
	cFprintf(w, colArrow, "-> ")
	cFprintf(w, p, format, a...)
	fmt.Fprintln(w)
}

// debugf routes the old printf-style debug calls to the structured logger.
func debugf(format string, args ...any) {
	log.Debug().Msgf(strings.TrimRight(format, "\n"), args...)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// absPath expands ~ and makes path absolute and clean.
func absPath(path string) (string, error) {
	return filepath.Abs(expandHome(path))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}

func isWritable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
