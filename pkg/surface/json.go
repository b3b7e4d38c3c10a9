package surface

import (
	"encoding/json"
	"io"

	"github.com/david-andreasson/novareport/pkg/summary"
)

// JSONRenderer marshals a summary document to indented JSON.
type JSONRenderer struct{}

type jsonBlock struct {
	Type  string          `json:"type"`
	Level int             `json:"level,omitempty"`
	Text  string          `json:"text,omitempty"`
	Runs  []summary.Run   `json:"runs,omitempty"`
	Items [][]summary.Run `json:"items,omitempty"`
}

type jsonDocument struct {
	Empty  bool        `json:"empty"`
	Blocks []jsonBlock `json:"blocks"`
}

func (r *JSONRenderer) Render(w io.Writer, doc summary.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(doc))
}

func toJSON(doc summary.Document) jsonDocument {
	out := jsonDocument{Empty: doc.Empty, Blocks: []jsonBlock{}}
	for _, b := range doc.Blocks {
		switch v := b.(type) {
		case summary.Heading:
			out.Blocks = append(out.Blocks, jsonBlock{Type: "heading", Level: v.Level, Text: v.Text})
		case summary.Paragraph:
			out.Blocks = append(out.Blocks, jsonBlock{Type: "paragraph", Runs: v.Runs})
		case summary.BulletList:
			out.Blocks = append(out.Blocks, jsonBlock{Type: "list", Items: v.Items})
		}
	}
	return out
}
