package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/models"
)

const sqlDate = "2006-01-02"

const meetingColumns = `id, series_id, date, start_time, end_time, source, meta, done, updated_at`

// CreateMeeting inserts a meeting and assigns its ID.
func (r *Repo) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	meta, _ := json.Marshal(m.Meta)
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO meetings (series_id, date, start_time, end_time, source, meta, done, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.SeriesID, formatDate(m.Date), formatClock(m.Start), formatClock(m.End), m.Source, string(meta), m.Done, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create meeting: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// CreateSubMeeting creates an announced meeting. An existing meeting of the
// series on the same date is returned unchanged.
func (r *Repo) CreateSubMeeting(ctx context.Context, seriesID int64, date time.Time, start *models.ClockTime) (*models.Meeting, error) {
	existing, err := r.MeetingByDate(ctx, seriesID, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	m := &models.Meeting{SeriesID: seriesID, Date: date, Start: start}
	if err := r.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMeeting returns a meeting including its source, or apperr.ErrNotFound.
func (r *Repo) GetMeeting(ctx context.Context, id int64) (*models.Meeting, error) {
	return scanMeeting(r.q.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
}

// MeetingByDate returns the first meeting of a series on a day, or apperr.ErrNotFound.
func (r *Repo) MeetingByDate(ctx context.Context, seriesID int64, date time.Time) (*models.Meeting, error) {
	return scanMeeting(r.q.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE series_id = ? AND date = ? ORDER BY id LIMIT 1`,
		seriesID, formatDate(date)))
}

// ListMeetings returns the meetings of a series, newest first.
func (r *Repo) ListMeetings(ctx context.Context, seriesID int64) ([]models.Meeting, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE series_id = ? ORDER BY date DESC, id DESC`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: list meetings: %w", err)
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateSource stores a new source text and its checksum.
func (r *Repo) UpdateSource(ctx context.Context, id int64, source, sum string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE meetings SET source = ?, checksum = ?, updated_at = ? WHERE id = ?`,
		source, sum, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update source: %w", err)
	}
	return expectOne(res, "update source")
}

// GetChecksum returns the stored source checksum of a meeting, or "" if unknown.
func (r *Repo) GetChecksum(ctx context.Context, id int64) (string, error) {
	var cs string
	err := r.q.QueryRowContext(ctx, `SELECT checksum FROM meetings WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get checksum: %w", err)
	}
	return cs, nil
}

// UpdateMeetingMeta stores date, times and meta values read from the protocol.
func (r *Repo) UpdateMeetingMeta(ctx context.Context, m *models.Meeting) error {
	meta, _ := json.Marshal(m.Meta)
	res, err := r.q.ExecContext(ctx, `
		UPDATE meetings SET date = ?, start_time = ?, end_time = ?, meta = ?, updated_at = ?
		WHERE id = ?
	`, formatDate(m.Date), formatClock(m.Start), formatClock(m.End), string(meta), time.Now().UTC(), m.ID)
	if err != nil {
		return fmt.Errorf("store: update meeting meta: %w", err)
	}
	return expectOne(res, "update meeting meta")
}

// SetDone marks a meeting as finished after a successful parse.
func (r *Repo) SetDone(ctx context.Context, id int64, done bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE meetings SET done = ? WHERE id = ?`, done, id)
	if err != nil {
		return fmt.Errorf("store: set done: %w", err)
	}
	return nil
}

// ReplaceAgendaOf replaces the agenda items of a meeting.
func (r *Repo) ReplaceAgendaOf(ctx context.Context, meetingID int64, items []models.AgendaItem) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM agenda_items WHERE meeting_id = ?`, meetingID); err != nil {
		return fmt.Errorf("store: clear agenda: %w", err)
	}
	for _, it := range items {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO agenda_items (meeting_id, number, name, extra) VALUES (?, ?, ?, ?)`,
			meetingID, it.Number, it.Name, it.Extra); err != nil {
			return fmt.Errorf("store: insert agenda item: %w", err)
		}
	}
	return nil
}

// AgendaOf returns the agenda items of a meeting in order.
func (r *Repo) AgendaOf(ctx context.Context, meetingID int64) ([]models.AgendaItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, meeting_id, name, number, extra FROM agenda_items WHERE meeting_id = ? ORDER BY number, id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("store: agenda: %w", err)
	}
	defer rows.Close()

	var out []models.AgendaItem
	for rows.Next() {
		var it models.AgendaItem
		if err := rows.Scan(&it.ID, &it.MeetingID, &it.Name, &it.Number, &it.Extra); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(s scanner) (*models.Meeting, error) {
	var (
		m                models.Meeting
		date, start, end string
		meta             string
	)
	err := s.Scan(&m.ID, &m.SeriesID, &date, &start, &end, &m.Source, &meta, &m.Done, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan meeting: %w", err)
	}
	if m.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if m.Start, err = parseClock(start); err != nil {
		return nil, err
	}
	if m.End, err = parseClock(end); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(meta), &m.Meta)
	return &m, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(sqlDate)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(sqlDate, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse date %q: %w", s, err)
	}
	return t, nil
}

func formatClock(c *models.ClockTime) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func parseClock(s string) (*models.ClockTime, error) {
	if s == "" {
		return nil, nil
	}
	c, err := models.ParseClock(s)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &c, nil
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
