package surface

import (
	"html/template"
	"io"

	"github.com/david-andreasson/novareport/pkg/summary"
)

// HTMLRenderer renders a summary as an HTML fragment, or as a complete
// page when Title is set. Heading level n becomes <h(n+1)> so the page
// title can own <h1>.
type HTMLRenderer struct {
	Title string
}

type htmlBlock struct {
	Kind  string
	Level int
	Text  string
	Runs  []summary.Run
	Items [][]summary.Run
}

type htmlView struct {
	Title     string
	Empty     bool
	EmptyText string
	Blocks    []htmlBlock
}

var htmlTmpl = template.Must(template.New("summary").Parse(`
{{- define "runs"}}{{range .}}{{if .Bold}}<strong>{{.Text}}</strong>{{else}}{{.Text}}{{end}}{{end}}{{end}}
{{- define "body"}}
{{- if .Empty}}<p class="report-empty">{{.EmptyText}}</p>
{{else}}{{range .Blocks}}
{{- if eq .Kind "heading"}}
{{- if eq .Level 1}}<h2>{{.Text}}</h2>{{else if eq .Level 2}}<h3>{{.Text}}</h3>{{else if eq .Level 3}}<h4>{{.Text}}</h4>{{else}}<h5>{{.Text}}</h5>{{end}}
{{else if eq .Kind "paragraph"}}<p>{{template "runs" .Runs}}</p>
{{else}}<ul>
{{range .Items}}<li>{{template "runs" .}}</li>
{{end}}</ul>
{{end}}{{end}}{{end}}{{end}}
{{- if .Title}}<!DOCTYPE html>
<html lang="sv">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article class="report-preview">
<h1>{{.Title}}</h1>
<section class="report-summary">
{{template "body" .}}</section>
</article>
</body>
</html>
{{else}}{{template "body" .}}{{end}}`))

func (r *HTMLRenderer) Render(w io.Writer, doc summary.Document) error {
	view := htmlView{
		Title:     r.Title,
		Empty:     doc.Empty,
		EmptyText: EmptyText,
	}
	for _, b := range doc.Blocks {
		switch v := b.(type) {
		case summary.Heading:
			view.Blocks = append(view.Blocks, htmlBlock{Kind: "heading", Level: v.Level, Text: v.Text})
		case summary.Paragraph:
			view.Blocks = append(view.Blocks, htmlBlock{Kind: "paragraph", Runs: v.Runs})
		case summary.BulletList:
			view.Blocks = append(view.Blocks, htmlBlock{Kind: "list", Items: v.Items})
		}
	}
	return htmlTmpl.Execute(w, view)
}
