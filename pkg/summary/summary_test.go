package summary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-andreasson/novareport/pkg/summary"
)

func plain(s string) summary.Run { return summary.Run{Text: s} }
func bold(s string) summary.Run  { return summary.Run{Text: s, Bold: true} }

func TestParse_EmptyInputs(t *testing.T) {
	for _, in := range []string{"", " ", "\n", "\n\n\n", " \t \n   \n\t"} {
		doc := summary.Parse(in)
		assert.True(t, doc.Empty, "input %q", in)
		assert.Nil(t, doc.Blocks, "input %q", in)
	}
}

func TestParse_HeadingAndList(t *testing.T) {
	doc := summary.Parse("# Titel\n\n- A\n- B")

	require.False(t, doc.Empty)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, summary.Heading{Level: 1, Text: "Titel"}, doc.Blocks[0])
	assert.Equal(t, summary.BulletList{Items: [][]summary.Run{{plain("A")}, {plain("B")}}}, doc.Blocks[1])
}

func TestParse_BoldLineHeading(t *testing.T) {
	doc := summary.Parse("**1. Viktig rubrik**\n\nText under rubrik.")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, summary.Heading{Level: 2, Text: "Viktig rubrik"}, doc.Blocks[0])
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("Text under rubrik.")}}, doc.Blocks[1])
}

func TestParse_TwoParagraphs(t *testing.T) {
	doc := summary.Parse("Först.\n\nAndra.")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("Först.")}}, doc.Blocks[0])
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("Andra.")}}, doc.Blocks[1])
}

func TestParse_ParagraphLinesJoined(t *testing.T) {
	doc := summary.Parse("  rad ett  \nrad **två**\n")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("rad ett rad "), bold("två")}}, doc.Blocks[0])
}

func TestParse_HeadingLevels(t *testing.T) {
	tests := []struct {
		in    string
		level int
		text  string
	}{
		{"# Ett", 1, "Ett"},
		{"## Två", 2, "Två"},
		{"### Tre", 3, "Tre"},
		{"#### Fyra", 4, "Fyra"},
		{"##### Fem", 4, "Fem"},
		{"###### Sex", 4, "Sex"},
		{"## 2) Marknad", 2, "Marknad"},
		{"## 3.Krypto", 2, "Krypto"},
		{"## 1.", 2, "1."},
		{"**2)**", 2, "2)"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			doc := summary.Parse(tt.in)
			require.Len(t, doc.Blocks, 1)
			assert.Equal(t, summary.Heading{Level: tt.level, Text: tt.text}, doc.Blocks[0])
		})
	}
}

func TestParse_SevenHashesIsParagraph(t *testing.T) {
	doc := summary.Parse("####### inte rubrik")

	require.Len(t, doc.Blocks, 1)
	assert.IsType(t, summary.Paragraph{}, doc.Blocks[0])
}

func TestParse_HeadingFlushesPending(t *testing.T) {
	doc := summary.Parse("intro\n- punkt\n## Rubrik\nslut")

	require.Len(t, doc.Blocks, 4)
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("intro")}}, doc.Blocks[0])
	assert.Equal(t, summary.BulletList{Items: [][]summary.Run{{plain("punkt")}}}, doc.Blocks[1])
	assert.Equal(t, summary.Heading{Level: 2, Text: "Rubrik"}, doc.Blocks[2])
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("slut")}}, doc.Blocks[3])
}

func TestParse_ListEndsOnNonBulletLine(t *testing.T) {
	doc := summary.Parse("- a\n- **b** c\nefter listan")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, summary.BulletList{Items: [][]summary.Run{
		{plain("a")},
		{bold("b"), plain(" c")},
	}}, doc.Blocks[0])
	assert.Equal(t, summary.Paragraph{Runs: []summary.Run{plain("efter listan")}}, doc.Blocks[1])
}

func TestParse_BulletStripsExtraWhitespace(t *testing.T) {
	doc := summary.Parse("-    indragen")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, summary.BulletList{Items: [][]summary.Run{{plain("indragen")}}}, doc.Blocks[0])
}

func TestParse_ConsecutiveBlankLines(t *testing.T) {
	doc := summary.Parse("a\n\n\n\nb\r\n")

	require.Len(t, doc.Blocks, 2)
}

func TestSplitInline(t *testing.T) {
	tests := []struct {
		in   string
		want []summary.Run
	}{
		{"Hello **World**", []summary.Run{plain("Hello "), bold("World")}},
		{"**A**", []summary.Run{bold("A")}},
		{"**A****B**", []summary.Run{bold("A"), bold("B")}},
		{"  x  **y**  z ", []summary.Run{plain("  x  "), bold("y"), plain("  z ")}},
		{"no emphasis", []summary.Run{plain("no emphasis")}},
		{"unclosed **bold", []summary.Run{plain("unclosed **bold")}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, summary.SplitInline(tt.in))
		})
	}
}

func TestDocumentText(t *testing.T) {
	doc := summary.Parse("# T\n\nHej **du**\n\n- a\n- b")

	assert.Equal(t, "T\n\nHej du\n\n- a\n- b\n", doc.Text())
	assert.Equal(t, "", summary.Parse("").Text())
}
