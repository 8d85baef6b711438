package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/protokoll/minutes/internal/apperr"
)

// Artifact is one rendered output of a meeting.
type Artifact struct {
	MeetingID  int64     `json:"meeting_id"`
	Format     string    `json:"format"`
	Visibility string    `json:"visibility"`
	RunID      string    `json:"run_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveArtifact stores a render, replacing the previous one of the same format and visibility.
func (r *Repo) SaveArtifact(ctx context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO artifacts (meeting_id, format, visibility, run_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(meeting_id, format, visibility) DO UPDATE SET
			run_id     = excluded.run_id,
			content    = excluded.content,
			created_at = excluded.created_at
	`, a.MeetingID, a.Format, a.Visibility, a.RunID, a.Content, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save artifact: %w", err)
	}
	return nil
}

// GetArtifact returns a stored render or apperr.ErrNotFound.
func (r *Repo) GetArtifact(ctx context.Context, meetingID int64, format, visibility string) (*Artifact, error) {
	var a Artifact
	err := r.q.QueryRowContext(ctx, `
		SELECT meeting_id, format, visibility, run_id, content, created_at
		FROM artifacts WHERE meeting_id = ? AND format = ? AND visibility = ?
	`, meetingID, format, visibility).Scan(&a.MeetingID, &a.Format, &a.Visibility, &a.RunID, &a.Content, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get artifact: %w", err)
	}
	return &a, nil
}
