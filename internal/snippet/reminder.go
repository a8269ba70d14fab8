package snippet

// SubmissionStatus maps each reminder-eligible author's email to whether
// they have a snippet among weekSnippets (the records for the current
// view anchor). Authors with WantsEmail false are left out of the map
// entirely, submitted or not; snippets from unknown emails introduce no
// keys.
func SubmissionStatus(authors []Author, weekSnippets []Snippet) map[string]bool {
	status := make(map[string]bool)
	for _, a := range authors {
		if !a.WantsEmail {
			continue
		}
		status[a.Email] = false
	}
	for _, s := range weekSnippets {
		if _, ok := status[s.Email]; ok {
			status[s.Email] = true
		}
	}
	return status
}
