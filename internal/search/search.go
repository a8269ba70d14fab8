package search

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Email   string `json:"email"`
	Week    string `json:"week"`
	Snippet string `json:"snippet"`
	Private bool   `json:"private"`
}

// Query describes a search request. Viewer scopes which private
// snippets may appear in the results.
type Query struct {
	Text   string
	Viewer string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push snippet records into a search index.
type Indexer interface {
	IndexSnippet(rec SnippetRecord) error
}

// SnippetRecord is the data we index for one snippet.
type SnippetRecord struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Week    string `json:"week"`
	Text    string `json:"text"`
	Private bool   `json:"private"`
	Domain  string `json:"domain"`
}

// NewSnippetRecord builds the indexable form of a snippet. Week is the
// ISO date of the snippet's Monday.
func NewSnippetRecord(email, week, text string, private bool) SnippetRecord {
	return SnippetRecord{
		ID:      recordID(email, week),
		Email:   email,
		Week:    week,
		Text:    text,
		Private: private,
		Domain:  emailDomain(email),
	}
}

// recordID derives a Meilisearch-safe primary key from the (email, week)
// pair, which itself contains characters Meilisearch rejects.
func recordID(email, week string) string {
	sum := sha256.Sum256([]byte(email + "|" + week))
	return fmt.Sprintf("%x", sum[:16])
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}
