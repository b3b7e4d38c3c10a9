// Package surface defines output rendering for report summaries.
// Implementations handle different output targets: terminal, JSON, HTML.
package surface

import (
	"fmt"
	"io"
	"time"
	_ "time/tzdata"

	"github.com/david-andreasson/novareport/pkg/summary"
)

// Renderer produces formatted output from a parsed summary.
type Renderer interface {
	// Render writes the formatted document to the writer.
	Render(w io.Writer, doc summary.Document) error
}

// EmptyText is shown in place of a summary that has no content.
const EmptyText = "Ingen sammanfattning tillgänglig."

// ForFormat returns the renderer for an output format name. Unknown
// formats fall back to the terminal renderer.
func ForFormat(format string) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{}
	case "html":
		return &HTMLRenderer{}
	default:
		return &TerminalRenderer{}
	}
}

var reportLocation = loadLocation("Europe/Stockholm")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReportHeader formats the title line for a report dated at t.
func ReportHeader(t time.Time) string {
	if t.IsZero() {
		return "Rapport"
	}
	return fmt.Sprintf("Rapport %s", t.In(reportLocation).Format("2006-01-02 15:04"))
}
