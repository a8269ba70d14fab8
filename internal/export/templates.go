package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(digestTemplateHTML))

// TemplateData holds data for digest template rendering
type TemplateData struct {
	WeekOf      time.Time
	GeneratedAt time.Time
	Categories  []TemplateCategory
}

// TemplateCategory holds one category section of the digest
type TemplateCategory struct {
	Name    string
	Entries []TemplateEntry
}

// TemplateEntry holds one author's snippet for the week
type TemplateEntry struct {
	Email   string
	Text    template.HTML
	Private bool
}

// TextToHTML converts plain snippet text to paragraph markup. Blank
// lines separate paragraphs; single newlines become line breaks.
func TextToHTML(text string) template.HTML {
	var b strings.Builder
	for i, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("<p>")
		for j, line := range strings.Split(para, "\n") {
			if j > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(template.HTMLEscapeString(line))
		}
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

// RenderDigestHTML renders the digest template with provided data
func RenderDigestHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const digestTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Weekly snippets for {{formatDate .WeekOf "Jan 2, 2006"}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; color: #444; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .entry { margin: 1rem 0; padding: 0.5rem 1rem; border-left: 3px solid #ccc; }
    .entry .author { font-weight: bold; }
    .entry.private { border-left-color: #c66; }
    .badge { font-size: 0.75em; color: #c66; margin-left: 0.5em; }
  </style>
</head>
<body>
  <h1>Weekly snippets</h1>
  <div class="meta">Week of {{formatDate .WeekOf "Monday, January 2, 2006"}} | generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04"}}</div>
  {{range .Categories}}
  <h2>{{.Name}}</h2>
  {{range .Entries}}
  <div class="entry{{if .Private}} private{{end}}">
    <span class="author">{{.Email}}</span>{{if .Private}}<span class="badge">private</span>{{end}}
    {{.Text}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
