package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries the snippets table using plainto_tsquery and ts_rank,
// with ts_headline for highlighted fragments. Private snippets are
// restricted to viewers whose email shares the author's domain.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "s.fts @@ plainto_tsquery('english', $1)"
	args := []any{q.Text}
	if domain := emailDomain(q.Viewer); domain != "" {
		where += " AND (NOT s.private OR split_part(s.email, '@', 2) = $2)"
		args = append(args, domain)
	} else {
		where += " AND NOT s.private"
	}

	countSQL := "SELECT count(*) FROM snippets s WHERE " + where

	dataSQL := fmt.Sprintf(`
		SELECT s.email, to_char(s.week, 'YYYY-MM-DD'),
			ts_headline('english', coalesce(s.text, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30'),
			s.private
		FROM snippets s
		WHERE %s
		ORDER BY ts_rank(s.fts, plainto_tsquery('english', $1)) DESC, s.week DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Email, &r.Week, &r.Snippet, &r.Private); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all snippet records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]SnippetRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT email, to_char(week, 'YYYY-MM-DD'), text, private
		FROM snippets
	`)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}
	defer rows.Close()

	records := make([]SnippetRecord, 0)
	for rows.Next() {
		var email, week, text string
		var private bool
		if err := rows.Scan(&email, &week, &text, &private); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		records = append(records, NewSnippetRecord(email, week, text, private))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}

	return records, nil
}
