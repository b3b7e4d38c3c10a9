// Package summary parses the lightweight markdown subset used by daily
// report summaries into a block document.
//
// Supported syntax: ATX headings (# .. ######, levels above 4 collapse to 4),
// a line wrapped entirely in ** as a level-2 heading, "- " bullet items,
// paragraphs separated by blank lines, and inline **bold** spans.
package summary

import (
	"regexp"
	"strings"
)

// MaxHeadingLevel is the deepest distinct heading level. Deeper headings
// render at this level.
const MaxHeadingLevel = 4

// Run is a span of inline text.
type Run struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Block is one of Heading, Paragraph or BulletList.
type Block interface {
	block()
}

// Heading is a section title.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Paragraph is a run of text lines joined by single spaces.
type Paragraph struct {
	Runs []Run `json:"runs"`
}

// BulletList holds consecutive "- " items.
type BulletList struct {
	Items [][]Run `json:"items"`
}

func (Heading) block()    {}
func (Paragraph) block()  {}
func (BulletList) block() {}

// Document is the parsed form of a summary. When Empty is set the summary
// had no content and Blocks is nil.
type Document struct {
	Empty  bool
	Blocks []Block
}

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	boldLineRe   = regexp.MustCompile(`^\*\*(.+)\*\*$`)
	numPrefixRe  = regexp.MustCompile(`^[0-9]+[.)]\s*`)
	bulletPrefix = regexp.MustCompile(`^-\s*`)
	boldSpanRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// parser accumulates the open paragraph and list while walking lines.
type parser struct {
	blocks    []Block
	paragraph []string
	list      []string
}

func (p *parser) flushParagraph() {
	if len(p.paragraph) == 0 {
		return
	}
	p.blocks = append(p.blocks, Paragraph{Runs: SplitInline(strings.Join(p.paragraph, " "))})
	p.paragraph = nil
}

func (p *parser) flushList() {
	if len(p.list) == 0 {
		return
	}
	items := make([][]Run, 0, len(p.list))
	for _, item := range p.list {
		items = append(items, SplitInline(item))
	}
	p.blocks = append(p.blocks, BulletList{Items: items})
	p.list = nil
}

func (p *parser) flush() {
	p.flushParagraph()
	p.flushList()
}

// Parse converts a summary into a Document. It accepts any string.
func Parse(s string) Document {
	if strings.TrimSpace(s) == "" {
		return Document{Empty: true}
	}

	p := &parser{}
	for _, raw := range strings.Split(s, "\n") {
		line := strings.TrimSpace(raw)

		if line == "" {
			p.flush()
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			p.flush()
			level := len(m[1])
			if level > MaxHeadingLevel {
				level = MaxHeadingLevel
			}
			p.blocks = append(p.blocks, Heading{Level: level, Text: stripNumberPrefix(m[2])})
			continue
		}

		if m := boldLineRe.FindStringSubmatch(line); m != nil {
			p.flush()
			p.blocks = append(p.blocks, Heading{Level: 2, Text: stripNumberPrefix(m[1])})
			continue
		}

		if strings.HasPrefix(line, "- ") {
			p.flushParagraph()
			p.list = append(p.list, bulletPrefix.ReplaceAllString(line, ""))
			continue
		}

		p.flushList()
		p.paragraph = append(p.paragraph, line)
	}
	p.flush()

	if len(p.blocks) == 0 {
		return Document{Empty: true}
	}
	return Document{Blocks: p.blocks}
}

// stripNumberPrefix removes a leading "1." or "2)" list marker. Text that
// would become empty is returned unchanged.
func stripNumberPrefix(text string) string {
	stripped := numPrefixRe.ReplaceAllString(text, "")
	if stripped == "" {
		return text
	}
	return stripped
}

// SplitInline splits text into plain and bold runs. Non-matching text is
// kept verbatim, including whitespace; empty segments are dropped.
func SplitInline(text string) []Run {
	var runs []Run
	last := 0
	for _, loc := range boldSpanRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			runs = append(runs, Run{Text: text[last:loc[0]]})
		}
		runs = append(runs, Run{Text: text[loc[2]:loc[3]], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		runs = append(runs, Run{Text: text[last:]})
	}
	return runs
}

// PlainText concatenates the text of runs, dropping emphasis.
func PlainText(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Text flattens the document to plain text, one block per line group.
func (d Document) Text() string {
	if d.Empty {
		return ""
	}
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch v := b.(type) {
		case Heading:
			sb.WriteString(v.Text)
			sb.WriteString("\n")
		case Paragraph:
			sb.WriteString(PlainText(v.Runs))
			sb.WriteString("\n")
		case BulletList:
			for _, item := range v.Items {
				sb.WriteString("- ")
				sb.WriteString(PlainText(item))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
