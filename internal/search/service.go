package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: sanitizeResults(nonNil(results), q.Viewer), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: sanitizeResults(nonNil(results), q.Viewer), Total: total, Query: q.Text}
}

// IndexSnippet indexes one snippet (fire-and-forget to Meilisearch).
func (s *Service) IndexSnippet(rec SnippetRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSnippet(rec); err != nil {
			log.Printf("search: index snippet %s/%s: %v", rec.Email, rec.Week, err)
		}
	}()
}

// ReindexAll pushes snippet records to Meilisearch in one batch.
func (s *Service) ReindexAll(records []SnippetRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(records) > 0 {
		if err := s.meili.IndexSnippets(records); err != nil {
			log.Printf("search: reindex snippets: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes every snippet from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(records)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

// sanitizeResults re-checks the domain rule on the way out in case the
// index filter let a stale record through.
func sanitizeResults(results []Result, viewer string) []Result {
	viewerDomain := emailDomain(viewer)
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if result.Private {
			domain := emailDomain(result.Email)
			if domain == "" || viewerDomain == "" || domain != viewerDomain {
				continue
			}
		}
		filtered = append(filtered, result)
	}
	return filtered
}
