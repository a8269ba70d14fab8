package app

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"snippets/api/internal/export"
	"snippets/api/internal/search"
	"snippets/api/internal/snippet"
)

// WeeklyGroups loads one week's snippets grouped by category for a
// viewer. It also backs digest export (export.DigestSource).
func (s *Service) WeeklyGroups(ctx context.Context, week time.Time, viewer string) ([]snippet.CategoryGroup, error) {
	items, err := s.store.SnippetsForWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return snippet.GroupByCategory(week, items, authors, viewer), nil
}

// WeeklyDigest builds the digest payload for one week, defaulting to
// the most recently completed week.
func (s *Service) WeeklyDigest(ctx context.Context, viewer Session, rawWeek string) (map[string]any, error) {
	week, err := s.parseWeek(rawWeek, snippet.ViewAnchor)
	if err != nil {
		return nil, err
	}
	groups, err := s.WeeklyGroups(ctx, week, viewer.Email)
	if err != nil {
		return nil, err
	}
	categories := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		entries := make([]map[string]any, 0, len(group.Snippets))
		for _, item := range group.Snippets {
			entries = append(entries, snippetPayload(item))
		}
		categories = append(categories, map[string]any{
			"category": group.Category,
			"snippets": entries,
		})
	}
	return map[string]any{
		"week":       week.Format(weekLayout),
		"prevWeek":   snippet.PrevWeek(week).Format(weekLayout),
		"nextWeek":   snippet.NextWeek(week).Format(weekLayout),
		"categories": categories,
	}, nil
}

// ExportWeekly renders one week's digest as a downloadable file. PDF
// exports are archived when an object store is configured.
func (s *Service) ExportWeekly(ctx context.Context, viewer Session, rawWeek, rawFormat string) (*export.Result, error) {
	week, err := s.parseWeek(rawWeek, snippet.ViewAnchor)
	if err != nil {
		return nil, err
	}
	format := export.Format(rawFormat)
	if format != export.FormatPDF && format != export.FormatDOCX && format != export.FormatHTML {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf', 'docx' or 'html'", nil)
	}
	result, err := s.exporter.Export(ctx, export.Request{Week: week, Format: format, Viewer: viewer.Email})
	if err != nil {
		return nil, err
	}
	if s.archive != nil && format == export.FormatPDF {
		if err := s.archive.PutDigest(ctx, week, result.Filename, result.MimeType, result.Data); err != nil {
			log.Printf("archive digest %s: %v", result.Filename, err)
		}
	}
	return result, nil
}

// ArchivedDigest fetches the stored PDF for a week from the object
// store, avoiding a re-render for digests already exported.
func (s *Service) ArchivedDigest(ctx context.Context, rawWeek string) (*export.Result, error) {
	if s.archive == nil {
		return nil, domainError(http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", "Digest archive is not configured", nil)
	}
	week, err := s.parseWeek(rawWeek, snippet.ViewAnchor)
	if err != nil {
		return nil, err
	}
	filename := "snippets-" + week.Format(weekLayout) + ".pdf"
	data, err := s.archive.GetDigest(ctx, week, filename)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No archived digest for "+week.Format(weekLayout), nil)
	}
	return &export.Result{Data: data, Filename: filename, MimeType: "application/pdf"}, nil
}

// Search runs a full-text query scoped to what the viewer may see.
func (s *Service) Search(ctx context.Context, viewer Session, q string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	return s.search.Search(search.Query{Text: q, Viewer: viewer.Email, Limit: limit, Offset: offset}), nil
}

// SendReminders mails everyone who opted in and has not submitted for
// the most recently completed week. Admin only.
func (s *Service) SendReminders(ctx context.Context, viewer Session) (map[string]any, error) {
	authors, status, week, err := s.submissionStatus(ctx, viewer)
	if err != nil {
		return nil, err
	}
	reminded := []string{}
	failed := 0
	for _, author := range authors {
		if !author.WantsEmail || status[author.Email] {
			continue
		}
		if err := s.mail.SendReminderEmail(author.Email, s.baseURL); err != nil {
			log.Printf("send reminder to %s: %v", author.Email, err)
			failed++
			continue
		}
		reminded = append(reminded, author.Email)
	}
	return map[string]any{
		"week":     week.Format(weekLayout),
		"reminded": reminded,
		"failed":   failed,
	}, nil
}

// SendDigestNotices mails every opted-in user that the week's digest
// is ready; non-submitters get a nag paragraph. Admin only.
func (s *Service) SendDigestNotices(ctx context.Context, viewer Session) (map[string]any, error) {
	authors, status, week, err := s.submissionStatus(ctx, viewer)
	if err != nil {
		return nil, err
	}
	notified := []string{}
	failed := 0
	for _, author := range authors {
		if !author.WantsEmail {
			continue
		}
		if err := s.mail.SendDigestNoticeEmail(author.Email, s.baseURL, status[author.Email]); err != nil {
			log.Printf("send digest notice to %s: %v", author.Email, err)
			failed++
			continue
		}
		notified = append(notified, author.Email)
	}
	return map[string]any{
		"week":     week.Format(weekLayout),
		"notified": notified,
		"failed":   failed,
	}, nil
}

// submissionStatus is the shared admin gate plus per-author submission
// check. Reminders and notices are about the most recently completed
// week (the view anchor), the week the digest covers.
func (s *Service) submissionStatus(ctx context.Context, viewer Session) ([]snippet.Author, map[string]bool, time.Time, error) {
	if !viewer.IsAdmin {
		return nil, nil, time.Time{}, domainError(http.StatusForbidden, "FORBIDDEN", "Admin only", nil)
	}
	if !s.SMTPConfigured() {
		return nil, nil, time.Time{}, domainError(http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email delivery is not configured", nil)
	}
	week := snippet.ViewAnchor(s.now())
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	items, err := s.store.SnippetsForWeek(ctx, week)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Email < authors[j].Email })
	return authors, snippet.SubmissionStatus(authors, items), week, nil
}
