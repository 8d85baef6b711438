package store

import (
	"context"
	"fmt"

	"github.com/protokoll/minutes/internal/models"
)

// ReplaceDecisionsOf drops all decisions of a meeting and inserts the given
// ones in order. The returned copies carry their new IDs.
func (r *Repo) ReplaceDecisionsOf(ctx context.Context, meetingID int64, decisions []models.Decision) ([]models.Decision, error) {
	if err := ftsClearDecisions(ctx, r.q, meetingID); err != nil {
		return nil, err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM decisions WHERE meeting_id = ?`, meetingID); err != nil {
		return nil, fmt.Errorf("store: clear decisions: %w", err)
	}
	out := make([]models.Decision, len(decisions))
	for i, d := range decisions {
		d.MeetingID = meetingID
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO decisions (meeting_id, position, content) VALUES (?, ?, ?)`, meetingID, i, d.Content)
		if err != nil {
			return nil, fmt.Errorf("store: insert decision: %w", err)
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		for j, c := range d.Categories {
			if _, err := r.q.ExecContext(ctx,
				`INSERT OR IGNORE INTO decision_categories (decision_id, category_id, position) VALUES (?, ?, ?)`,
				d.ID, c.ID, j); err != nil {
				return nil, fmt.Errorf("store: insert decision category: %w", err)
			}
		}
		if err := ftsIndexDecision(ctx, r.q, d.ID, d.Content); err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// DecisionsOfMeeting returns the decisions of one meeting in source order.
func (r *Repo) DecisionsOfMeeting(ctx context.Context, meetingID int64) ([]models.Decision, error) {
	return r.queryDecisions(ctx, `
		SELECT id, meeting_id, content FROM decisions WHERE meeting_id = ? ORDER BY position
	`, meetingID)
}

// ListDecisions returns the decisions of a series, newest meeting first.
func (r *Repo) ListDecisions(ctx context.Context, seriesID int64) ([]models.Decision, error) {
	return r.queryDecisions(ctx, `
		SELECT d.id, d.meeting_id, d.content
		FROM decisions d JOIN meetings m ON m.id = d.meeting_id
		WHERE m.series_id = ?
		ORDER BY m.date DESC, m.id DESC, d.position
	`, seriesID)
}

func (r *Repo) queryDecisions(ctx context.Context, query string, args ...any) ([]models.Decision, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query decisions: %w", err)
	}
	var out []models.Decision
	for rows.Next() {
		var d models.Decision
		if err := rows.Scan(&d.ID, &d.MeetingID, &d.Content); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Categories, err = r.categoriesOf(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) categoriesOf(ctx context.Context, decisionID int64) ([]models.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.series_id, c.name
		FROM categories c JOIN decision_categories dc ON dc.category_id = c.id
		WHERE dc.decision_id = ? ORDER BY dc.position
	`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("store: decision categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.SeriesID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
