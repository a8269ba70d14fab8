package export

import (
	"context"
	"fmt"
	"time"

	"snippets/api/internal/snippet"
)

// DigestSource supplies the grouped weekly digest for a viewer.
type DigestSource interface {
	WeeklyGroups(ctx context.Context, week time.Time, viewer string) ([]snippet.CategoryGroup, error)
}

// Service provides weekly digest export functionality
type Service struct {
	source DigestSource
}

// NewService creates a new export service
func NewService(source DigestSource) *Service {
	return &Service{source: source}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	groups, err := s.source.WeeklyGroups(ctx, req.Week, req.Viewer)
	if err != nil {
		return nil, fmt.Errorf("load weekly digest: %w", err)
	}

	data := TemplateData{
		WeekOf:      req.Week,
		GeneratedAt: time.Now(),
		Categories:  make([]TemplateCategory, 0, len(groups)),
	}
	for _, group := range groups {
		category := TemplateCategory{
			Name:    group.Category,
			Entries: make([]TemplateEntry, 0, len(group.Snippets)),
		}
		for _, item := range group.Snippets {
			category.Entries = append(category.Entries, TemplateEntry{
				Email:   item.Email,
				Text:    TextToHTML(item.Text),
				Private: item.Private,
			})
		}
		data.Categories = append(data.Categories, category)
	}

	html, err := RenderDigestHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := "snippets-" + req.Week.Format("2006-01-02")
	switch req.Format {
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
