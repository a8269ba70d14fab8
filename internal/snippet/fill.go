package snippet

import "time"

// FillMissing returns existing with every missing week filled in by a
// placeholder, so the result has no holes. existing must be ascending by
// week (oldest first) and belong to a single author. Filling extends up
// to the submission anchor for today; nothing is persisted, truncated,
// or reordered — real records always survive unchanged, including any
// that already lie beyond the anchor.
func FillMissing(existing []Snippet, email string, today time.Time) []Snippet {
	endMonday := SubmissionAnchor(today)
	if len(existing) == 0 {
		return []Snippet{placeholder(email, endMonday)}
	}

	filled := make([]Snippet, 0, len(existing)+1)
	filled = append(filled, existing[0])
	fillTo := func(next Snippet) {
		for next.Week.Sub(filled[len(filled)-1].Week) > week {
			filled = append(filled, placeholder(email, NextWeek(filled[len(filled)-1].Week)))
		}
		filled = append(filled, next)
	}
	for _, s := range existing[1:] {
		fillTo(s)
	}

	// Sentinel one week past the last week we want filled, dropped
	// after the walk. If the newest real record is already past
	// endMonday the sentinel gap is non-positive and no future weeks
	// get fabricated.
	fillTo(placeholder(email, NextWeek(endMonday)))
	return filled[:len(filled)-1]
}
