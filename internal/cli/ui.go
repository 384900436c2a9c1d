package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// ANSI colors used by the chat and admin output.
const (
	colorHeader = "\033[95m"
	colorBlue   = "\033[94m"
	colorCyan   = "\033[96m"
	colorGreen  = "\033[92m"
	colorGrey   = "\033[90m"
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
	colorReset  = "\033[0m"
)

// ui writes to a terminal, coloring only when the writer is a TTY.
type ui struct {
	out         io.Writer
	color       bool
	typingDelay time.Duration
}

func newUI(out io.Writer, disableColor bool, typingDelay time.Duration) *ui {
	return &ui{
		out:         out,
		color:       !disableColor && isTerminal(out),
		typingDelay: typingDelay,
	}
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (u *ui) paint(color, s string) string {
	if !u.color || color == "" {
		return s
	}
	return color + s + colorReset
}

func (u *ui) printf(color, format string, args ...interface{}) {
	fmt.Fprint(u.out, u.paint(color, fmt.Sprintf(format, args...)))
}

func (u *ui) println(color, s string) {
	fmt.Fprintln(u.out, u.paint(color, s))
}

// typeOut prints text one character at a time. Cancelling ctx flushes the
// rest immediately.
func (u *ui) typeOut(ctx context.Context, text string) {
	if u.typingDelay <= 0 {
		fmt.Fprintln(u.out, text)
		return
	}
	for i, r := range text {
		select {
		case <-ctx.Done():
			fmt.Fprintln(u.out, text[i:])
			return
		case <-time.After(u.typingDelay):
		}
		fmt.Fprint(u.out, string(r))
	}
	fmt.Fprintln(u.out)
}
