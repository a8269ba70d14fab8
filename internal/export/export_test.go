package export

import (
	"strings"
	"testing"
	"time"
)

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty text",
			input:    "",
			expected: "",
		},
		{
			name:     "single paragraph",
			input:    "shipped the widget",
			expected: "<p>shipped the widget</p>",
		},
		{
			name:     "newline becomes break",
			input:    "line one\nline two",
			expected: "<p>line one<br>line two</p>",
		},
		{
			name:     "blank line splits paragraphs",
			input:    "first\n\nsecond",
			expected: "<p>first</p>\n<p>second</p>",
		},
		{
			name:     "html is escaped",
			input:    "<script>alert(1)</script>",
			expected: "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
		{
			name:     "windows line endings",
			input:    "one\r\ntwo",
			expected: "<p>one<br>two</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(TextToHTML(tt.input))
			if got != tt.expected {
				t.Errorf("TextToHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenderDigestHTML(t *testing.T) {
	data := TemplateData{
		WeekOf:      time.Date(2012, time.February, 20, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2012, time.February, 28, 9, 30, 0, 0, time.UTC),
		Categories: []TemplateCategory{
			{
				Name: "eng",
				Entries: []TemplateEntry{
					{Email: "alice@example.com", Text: TextToHTML("built the parser")},
					{Email: "bob@example.com", Text: TextToHTML("code review week"), Private: true},
				},
			},
			{
				Name: "(unknown)",
				Entries: []TemplateEntry{
					{Email: "dana@example.com", Text: TextToHTML("(no snippet this week)")},
				},
			},
		},
	}

	html, err := RenderDigestHTML(data)
	if err != nil {
		t.Fatalf("RenderDigestHTML() error = %v", err)
	}

	for _, want := range []string{
		"Week of Monday, February 20, 2012",
		"<h2>eng</h2>",
		"alice@example.com",
		"built the parser",
		"<h2>(unknown)</h2>",
		"(no snippet this week)",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered digest missing %q", want)
		}
	}

	if !strings.Contains(html, `class="entry private"`) {
		t.Error("private entries should carry the private class")
	}
}

func TestRenderDigestHTMLEscapesSnippetText(t *testing.T) {
	data := TemplateData{
		WeekOf:      time.Date(2012, time.February, 20, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Now(),
		Categories: []TemplateCategory{
			{
				Name: "eng",
				Entries: []TemplateEntry{
					{Email: "alice@example.com", Text: TextToHTML("<img src=x onerror=alert(1)>")},
				},
			},
		},
	}

	html, err := RenderDigestHTML(data)
	if err != nil {
		t.Fatalf("RenderDigestHTML() error = %v", err)
	}
	if strings.Contains(html, "<img src=x") {
		t.Error("snippet text must not be rendered as raw HTML")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"snippets-2012-02-20", "snippets-2012-02-20"},
		{"weekly digest", "weekly-digest"},
		{"***", "digest"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
