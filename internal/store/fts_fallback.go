//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on decisions.content.
	return nil
}

func ftsIndexDecision(_ context.Context, _ querier, _ int64, _ string) error { return nil }

func ftsClearDecisions(_ context.Context, _ querier, _ int64) error { return nil }

// SearchDecisions performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (r *Repo) SearchDecisions(ctx context.Context, seriesID int64, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT d.id, d.meeting_id, substr(d.content, 1, 200)
		FROM decisions d JOIN meetings m ON m.id = d.meeting_id
		WHERE m.series_id = ? AND d.content LIKE ?
		ORDER BY m.date DESC, d.position
		LIMIT ?
	`, seriesID, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("store: search decisions: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.DecisionID, &res.MeetingID, &res.Snippet); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
