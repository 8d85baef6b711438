package store

import (
	"context"
	"fmt"
	"time"

	"github.com/protokoll/minutes/internal/diag"
)

// StoredDiagnostic is a diagnostic recorded for a meeting.
type StoredDiagnostic struct {
	ID        int64     `json:"id"`
	MeetingID int64     `json:"meeting_id"`
	CreatedAt time.Time `json:"created_at"`
	diag.Diagnostic
}

// AddDiagnostic records a diagnostic for a meeting.
func (r *Repo) AddDiagnostic(ctx context.Context, meetingID int64, d *diag.Diagnostic) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO diagnostics (meeting_id, phase, kind, severity, message, line, context, tree, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meetingID, string(d.Phase), string(d.Kind), string(d.Severity), d.Message, d.Line, d.Context, d.Tree, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: add diagnostic: %w", err)
	}
	return nil
}

// ClearDiagnostics removes the diagnostics of a meeting; all phases when phase is empty.
func (r *Repo) ClearDiagnostics(ctx context.Context, meetingID int64, phase diag.Phase) error {
	var err error
	if phase == "" {
		_, err = r.q.ExecContext(ctx, `DELETE FROM diagnostics WHERE meeting_id = ?`, meetingID)
	} else {
		_, err = r.q.ExecContext(ctx, `DELETE FROM diagnostics WHERE meeting_id = ? AND phase = ?`, meetingID, string(phase))
	}
	if err != nil {
		return fmt.Errorf("store: clear diagnostics: %w", err)
	}
	return nil
}

// Diagnostics returns the diagnostics of a meeting, newest first.
func (r *Repo) Diagnostics(ctx context.Context, meetingID int64) ([]StoredDiagnostic, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, meeting_id, phase, kind, severity, message, line, context, tree, created_at
		FROM diagnostics WHERE meeting_id = ? ORDER BY id DESC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("store: diagnostics: %w", err)
	}
	defer rows.Close()

	var out []StoredDiagnostic
	for rows.Next() {
		var (
			d                     StoredDiagnostic
			phase, kind, severity string
		)
		if err := rows.Scan(&d.ID, &d.MeetingID, &phase, &kind, &severity, &d.Message, &d.Line, &d.Context, &d.Tree, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Phase, d.Kind, d.Severity = diag.Phase(phase), diag.Kind(kind), diag.Severity(severity)
		out = append(out, d)
	}
	return out, rows.Err()
}
