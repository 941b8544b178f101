package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const bannerWidth = 39

// Banner writes lines centered in a box of '#', used between two accounts
func Banner(w io.Writer, coloring bool, lines ...string) {
	border := color.New(color.FgCyan)
	text := color.New(color.FgMagenta)
	if !coloring {
		border.DisableColor()
		text.DisableColor()
	}

	rule := strings.Repeat("#", bannerWidth+2)
	_, _ = border.Fprintln(w, rule)
	for _, line := range lines {
		_, _ = border.Fprint(w, "#")
		_, _ = text.Fprint(w, center(line, bannerWidth))
		_, _ = border.Fprintln(w, "#")
		_, _ = border.Fprintln(w, rule)
	}
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return fmt.Sprintf("%s%s%s", strings.Repeat(" ", left), s, strings.Repeat(" ", width-len(s)-left))
}
