// Package snippet holds the weekly-record aggregation core: week anchor
// arithmetic, gap filling, the privacy/permission rules, and the per-week
// digest grouping. Everything here is pure computation over values handed
// in by the caller; storage and HTTP live elsewhere.
package snippet

import "time"

const (
	// DefaultText is the placeholder text a snippet carries when the
	// author never wrote one for that week.
	DefaultText = "(No snippet for this week)"

	// NoSnippetThisWeek is the placeholder text shown in the weekly
	// digest for authors without a visible snippet.
	NoSnippetThisWeek = "(no snippet this week)"

	// DefaultCategory groups authors who never picked a category.
	DefaultCategory = "(unknown)"

	// DefaultWantsToView means the author's personal digest is unfiltered.
	DefaultWantsToView = "all"
)

// Snippet is one author's status update for one week. Week is always a
// week anchor (see WeekAnchor); (Email, Week) is the identity.
type Snippet struct {
	Email   string    `json:"email"`
	Week    time.Time `json:"week"`
	Text    string    `json:"text"`
	Private bool      `json:"private"`
}

// Author is the digest-relevant slice of a user record. Email is the
// identity, stored lowercase. WantsToView is a comma-separated list of
// emails the author wants in their personal digest, or "all".
type Author struct {
	Email       string `json:"email"`
	Category    string `json:"category"`
	WantsEmail  bool   `json:"wantsEmail"`
	WantsToView string `json:"wantsToView"`
}

// NewAuthor returns an Author with the documented defaults applied.
func NewAuthor(email string) Author {
	return Author{
		Email:       email,
		Category:    DefaultCategory,
		WantsEmail:  true,
		WantsToView: DefaultWantsToView,
	}
}

func placeholder(email string, week time.Time) Snippet {
	return Snippet{Email: email, Week: week, Text: DefaultText}
}
