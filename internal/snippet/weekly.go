package snippet

import (
	"sort"
	"time"
)

// CategoryGroup is one digest bucket: a category label and its snippets,
// ordered by author email.
type CategoryGroup struct {
	Category string    `json:"category"`
	Snippets []Snippet `json:"snippets"`
}

// GroupByCategory builds the weekly digest for one anchor. snippets must
// all carry Week == anchor; authors is the full set of known authors.
//
// Private snippets the viewer fails the domain check for are dropped
// outright. An author whose only snippet was dropped this way looks the
// same as one who never submitted, except no placeholder is emitted for
// them (they were already resolved by their invisible record). That
// asymmetry is long-standing observed behavior and is kept as is.
//
// Unknown authors (a snippet with no matching Author) file under
// DefaultCategory. The result is ordered: categories ascending, snippets
// within a category ascending by email, so callers never re-sort.
func GroupByCategory(anchor time.Time, snippets []Snippet, authors []Author, viewer string) []CategoryGroup {
	categoryOf := make(map[string]string, len(authors))
	for _, a := range authors {
		categoryOf[a.Email] = a.Category
	}

	// Pass one: place visible snippets, remembering which authors are
	// accounted for (visible or not).
	byCategory := make(map[string][]Snippet)
	resolved := make(map[string]bool, len(snippets))
	for _, s := range snippets {
		resolved[s.Email] = true
		if s.Private && !CanViewPrivate(viewer, s.Email) {
			continue
		}
		category, ok := categoryOf[s.Email]
		if !ok {
			category = DefaultCategory
		}
		byCategory[category] = append(byCategory[category], s)
	}

	// Pass two: placeholders for every author still unaccounted for.
	for _, a := range authors {
		if resolved[a.Email] {
			continue
		}
		byCategory[a.Category] = append(byCategory[a.Category], Snippet{
			Email: a.Email,
			Week:  anchor,
			Text:  NoSnippetThisWeek,
		})
	}

	groups := make([]CategoryGroup, 0, len(byCategory))
	for category, items := range byCategory {
		sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
		groups = append(groups, CategoryGroup{Category: category, Snippets: items})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups
}
