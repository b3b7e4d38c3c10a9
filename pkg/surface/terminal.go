package surface

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/david-andreasson/novareport/pkg/summary"
)

// TerminalRenderer renders a summary as colored terminal output.
type TerminalRenderer struct {
	// Width is the wrap column for paragraphs and list items. Zero means 80.
	Width int
}

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
)

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func (r *TerminalRenderer) width() int {
	if r.Width <= 0 {
		return 80
	}
	return r.Width
}

func (r *TerminalRenderer) Render(w io.Writer, doc summary.Document) error {
	if doc.Empty {
		_, err := fmt.Fprintln(w, dim(EmptyText))
		return err
	}

	for i, b := range doc.Blocks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		switch v := b.(type) {
		case summary.Heading:
			r.renderHeading(w, v)
		case summary.Paragraph:
			for _, line := range wrapRuns(v.Runs, r.width()) {
				fmt.Fprintln(w, line)
			}
		case summary.BulletList:
			for _, item := range v.Items {
				for j, line := range wrapRuns(item, r.width()-4) {
					if j == 0 {
						fmt.Fprintf(w, "  • %s\n", line)
					} else {
						fmt.Fprintf(w, "    %s\n", line)
					}
				}
			}
		}
	}
	return nil
}

func (r *TerminalRenderer) renderHeading(w io.Writer, h summary.Heading) {
	n := utf8.RuneCountInString(h.Text)
	switch h.Level {
	case 1:
		fmt.Fprintf(w, "%s\n%s\n", bold(h.Text), strings.Repeat("=", n))
	case 2:
		fmt.Fprintf(w, "%s\n%s\n", bold(h.Text), strings.Repeat("-", n))
	case 3:
		fmt.Fprintln(w, bold(h.Text))
	default:
		fmt.Fprintln(w, bold("· "+h.Text))
	}
}

// splitWords breaks runs into words. Text from adjacent runs with no
// whitespace between them stays in the same word.
func splitWords(runs []summary.Run) [][]summary.Run {
	var words [][]summary.Run
	glue := false
	for _, run := range runs {
		fields := strings.Fields(run.Text)
		if len(fields) == 0 {
			glue = false
			continue
		}
		first, _ := utf8.DecodeRuneInString(run.Text)
		for i, f := range fields {
			seg := summary.Run{Text: f, Bold: run.Bold}
			if i == 0 && glue && !unicode.IsSpace(first) && len(words) > 0 {
				words[len(words)-1] = append(words[len(words)-1], seg)
				continue
			}
			words = append(words, []summary.Run{seg})
		}
		last, _ := utf8.DecodeLastRuneInString(run.Text)
		glue = !unicode.IsSpace(last)
	}
	return words
}

// wrapRuns wraps runs at the given width, returning rendered lines.
func wrapRuns(runs []summary.Run, width int) []string {
	words := splitWords(runs)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		wordLen := 0
		var rendered strings.Builder
		for _, seg := range word {
			wordLen += utf8.RuneCountInString(seg.Text)
			if seg.Bold {
				rendered.WriteString(bold(seg.Text))
			} else {
				rendered.WriteString(seg.Text)
			}
		}

		if currentLen > 0 && currentLen+1+wordLen > width {
			lines = append(lines, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(rendered.String())
		currentLen += wordLen
	}
	lines = append(lines, current.String())
	return lines
}
