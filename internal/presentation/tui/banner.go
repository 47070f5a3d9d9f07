package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   ___               _     `, "#34d399"},
	{`  / __\___   __ _  ___| |__  `, "#2dd4bf"},
	{` / /  / _ \ / _` + "`" + ` |/ __| '_ \ `, "#22d3ee"},
	{`/ /__| (_) | (_| | (__| | | |`, "#38bdf8"},
	{`\____/\___/ \__,_|\___|_| |_|`, "#60a5fa"},
}

// PrintBanner writes the coach banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  interview practice coach v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

// StageBadge renders a stage as "[n/7 Title]", coloured when w supports it.
func StageBadge(w io.Writer, s domain.Stage) string {
	out := termenv.NewOutput(w)
	badge := fmt.Sprintf("[%d/%d %s]", int(s)+1, len(domain.AllStages()), s.Title())
	color := "#60a5fa"
	if s.IsCritical() {
		color = "#f59e0b"
	}
	return out.String(badge).Foreground(out.Color(color)).Bold().String()
}
