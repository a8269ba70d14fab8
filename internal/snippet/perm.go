package snippet

import "strings"

// CanActFor reports whether actor may view settings for, or edit snippets
// of, target. Only the target themselves and admins qualify; identities
// compare case-insensitively.
func CanActFor(actor, target string, actorIsAdmin bool) bool {
	return strings.EqualFold(actor, target) || actorIsAdmin
}

// CanViewPrivate reports whether viewer may read author's private
// snippets in the weekly digest: both must share the domain following
// the last '@'. Identities without an '@' never match. This governs
// digest reads only — it grants no edit rights, and the personal page
// always shows a viewer their own records.
func CanViewPrivate(viewer, author string) bool {
	viewerAt := strings.LastIndex(viewer, "@")
	authorAt := strings.LastIndex(author, "@")
	if viewerAt == -1 || authorAt == -1 {
		return false
	}
	return viewer[viewerAt:] == author[authorAt:]
}
