package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"snippets/api/internal/search"
	"snippets/api/internal/snippet"
)

// editHistoryLimit caps the number of git log entries returned.
const editHistoryLimit = 50

// UserHistory returns the target's gap-filled snippet history, newest
// first. Private records the viewer may not see are omitted. Unknown
// targets read as an all-placeholder history, never an error; author
// records only come into existence on the owner's or an admin's visit.
func (s *Service) UserHistory(ctx context.Context, viewer Session, target string) (map[string]any, error) {
	target = resolveTarget(viewer, target)
	editable := snippet.CanActFor(viewer.Email, target, viewer.IsAdmin)
	if editable {
		if err := s.store.EnsureAuthor(ctx, target); err != nil {
			return nil, err
		}
	}

	items, err := s.store.SnippetsForUser(ctx, target)
	if err != nil {
		return nil, err
	}
	filled := snippet.FillMissing(items, target, s.now())

	out := make([]map[string]any, 0, len(filled))
	// Newest week first for display.
	for i := len(filled) - 1; i >= 0; i-- {
		item := filled[i]
		if item.Private && viewer.Email != target && !snippet.CanViewPrivate(viewer.Email, target) {
			continue
		}
		out = append(out, snippetPayload(item))
	}
	return map[string]any{
		"email":    target,
		"editable": editable,
		"snippets": out,
	}, nil
}

// UpdateSnippetInput is the submit payload. A blank Week means the
// current submission anchor.
type UpdateSnippetInput struct {
	Email   string
	Week    string
	Text    string
	Private bool
}

// UpdateSnippet upserts one (email, week) record, appends the new text
// to the author's edit log and pushes it into the search index.
func (s *Service) UpdateSnippet(ctx context.Context, viewer Session, in UpdateSnippetInput) (map[string]any, error) {
	target := resolveTarget(viewer, in.Email)
	if !snippet.CanActFor(viewer.Email, target, viewer.IsAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Not allowed to edit snippets for "+target, nil)
	}
	week, err := s.parseWeek(in.Week, snippet.SubmissionAnchor)
	if err != nil {
		return nil, err
	}
	if err := s.store.EnsureAuthor(ctx, target); err != nil {
		return nil, err
	}

	item := snippet.Snippet{Email: target, Week: week, Text: in.Text, Private: in.Private}
	if err := s.store.UpsertSnippet(ctx, item); err != nil {
		return nil, err
	}

	weekStr := week.Format(weekLayout)
	if s.snippetLog != nil {
		if _, err := s.snippetLog.CommitSnippet(target, weekStr, in.Text); err != nil {
			log.Printf("snippet log commit for %s week %s: %v", target, weekStr, err)
		}
	}
	if s.search != nil {
		s.search.IndexSnippet(search.NewSnippetRecord(target, weekStr, in.Text, in.Private))
	}
	return snippetPayload(item), nil
}

// SnippetHistory returns the git edit log for a user's snippets.
// Unlike the week-by-week view this exposes overwritten text, so only
// the author themselves or an admin may read it.
func (s *Service) SnippetHistory(ctx context.Context, viewer Session, target string) (map[string]any, error) {
	target = resolveTarget(viewer, target)
	if !snippet.CanActFor(viewer.Email, target, viewer.IsAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Not allowed to view the edit log for "+target, nil)
	}
	entries := []map[string]any{}
	if s.snippetLog != nil {
		commits, err := s.snippetLog.History(target, editHistoryLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range commits {
			entries = append(entries, map[string]any{
				"hash":      c.Hash,
				"message":   c.Message,
				"author":    c.Author,
				"createdAt": c.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return map[string]any{"email": target, "entries": entries}, nil
}

// Settings returns the target's digest settings, creating the author
// record on first access by the owner or an admin.
func (s *Service) Settings(ctx context.Context, viewer Session, target string) (map[string]any, error) {
	target = resolveTarget(viewer, target)
	if !snippet.CanActFor(viewer.Email, target, viewer.IsAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Not allowed to view settings for "+target, nil)
	}
	if err := s.store.EnsureAuthor(ctx, target); err != nil {
		return nil, err
	}
	author, err := s.store.GetAuthor(ctx, target)
	if err != nil {
		return nil, err
	}
	return settingsPayload(author), nil
}

// UpdateSettingsInput is the settings form. WantsToView accepts the
// emails separated by newlines or commas; "all" disables filtering.
type UpdateSettingsInput struct {
	Email       string
	Category    string
	WantsEmail  bool
	WantsToView string
}

func (s *Service) UpdateSettings(ctx context.Context, viewer Session, in UpdateSettingsInput) (map[string]any, error) {
	target := resolveTarget(viewer, in.Email)
	if !snippet.CanActFor(viewer.Email, target, viewer.IsAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Not allowed to change settings for "+target, nil)
	}
	author := snippet.Author{
		Email:       target,
		Category:    strings.TrimSpace(in.Category),
		WantsEmail:  in.WantsEmail,
		WantsToView: normalizeWantsToView(in.WantsToView),
	}
	if author.Category == "" {
		author.Category = snippet.DefaultCategory
	}
	if err := s.store.UpsertAuthorSettings(ctx, author); err != nil {
		return nil, err
	}
	return settingsPayload(author), nil
}

// normalizeWantsToView flattens the submitted list to a canonical
// comma-separated form. The form historically accepted one address per
// line, so newlines are treated as separators too.
func normalizeWantsToView(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\n", ",")
	parts := strings.Split(raw, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p == snippet.DefaultWantsToView {
			return snippet.DefaultWantsToView
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return snippet.DefaultWantsToView
	}
	return strings.Join(cleaned, ",")
}

func snippetPayload(item snippet.Snippet) map[string]any {
	return map[string]any{
		"email":   item.Email,
		"week":    item.Week.Format(weekLayout),
		"text":    item.Text,
		"private": item.Private,
	}
}

func settingsPayload(author snippet.Author) map[string]any {
	return map[string]any{
		"email":       author.Email,
		"category":    author.Category,
		"wantsEmail":  author.WantsEmail,
		"wantsToView": author.WantsToView,
	}
}
