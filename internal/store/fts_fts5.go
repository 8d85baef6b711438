//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
			decision_id UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsIndexDecision(ctx context.Context, q querier, id int64, content string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO decisions_fts (decision_id, content) VALUES (?, ?)`, id, content)
	if err != nil {
		return fmt.Errorf("store: index decision: %w", err)
	}
	return nil
}

func ftsClearDecisions(ctx context.Context, q querier, meetingID int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM decisions_fts WHERE decision_id IN (SELECT id FROM decisions WHERE meeting_id = ?)`, meetingID)
	if err != nil {
		return fmt.Errorf("store: clear decision index: %w", err)
	}
	return nil
}

// SearchDecisions performs an FTS5 full-text search over the decisions of a series.
func (r *Repo) SearchDecisions(ctx context.Context, seriesID int64, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT d.id, d.meeting_id, snippet(decisions_fts, 1, '<b>', '</b>', '...', 32)
		FROM decisions_fts f
		JOIN decisions d ON d.id = f.decision_id
		JOIN meetings m ON m.id = d.meeting_id
		WHERE decisions_fts MATCH ? AND m.series_id = ?
		ORDER BY rank
		LIMIT ?
	`, query, seriesID, limit)
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
