package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/protokoll/minutes/internal/fuzzy"
	"github.com/protokoll/minutes/internal/models"
)

const itemColumns = `id, series_id, number, who, description, state, date`

// FindActionItemByNumber returns the item with the given number, or nil.
// The number of an item merged into another resolves to the surviving item.
func (r *Repo) FindActionItemByNumber(ctx context.Context, seriesID int64, number int) (*models.ActionItem, error) {
	it, err := scanItem(r.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM action_items
		WHERE series_id = ? AND number = COALESCE(
			(SELECT target FROM action_item_aliases WHERE series_id = ? AND number = ?), ?)
	`, seriesID, seriesID, number, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find action item: %w", err)
	}
	if it.MeetingIDs, err = r.meetingsOf(ctx, it.ID); err != nil {
		return nil, err
	}
	return it, nil
}

// FindActionItemsByDescription scores the legacy items of a series against
// description and returns those reaching minScore, best first.
func (r *Repo) FindActionItemsByDescription(ctx context.Context, seriesID int64, description string, minScore int) ([]models.ActionItemCandidate, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT number, who, description FROM legacy_action_items WHERE series_id = ? ORDER BY number`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: legacy action items: %w", err)
	}
	defer rows.Close()

	var out []models.ActionItemCandidate
	for rows.Next() {
		var c models.ActionItemCandidate
		if err := rows.Scan(&c.Number, &c.Who, &c.Description); err != nil {
			return nil, err
		}
		if c.Score = fuzzy.Score(description, c.Description); c.Score >= minScore {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// CreateActionItem inserts an item. A zero Number is replaced by the next
// number not used by any current, merged or legacy item of the series.
func (r *Repo) CreateActionItem(ctx context.Context, it *models.ActionItem) error {
	if it.Number == 0 {
		err := r.q.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(number), 0) + 1 FROM (
				SELECT number FROM action_items WHERE series_id = ?
				UNION ALL
				SELECT number FROM action_item_aliases WHERE series_id = ?
				UNION ALL
				SELECT number FROM legacy_action_items WHERE series_id = ?
			)
		`, it.SeriesID, it.SeriesID, it.SeriesID).Scan(&it.Number)
		if err != nil {
			return fmt.Errorf("store: next action item number: %w", err)
		}
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO action_items (series_id, number, who, description, state, date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, it.SeriesID, it.Number, it.Who, it.Description, it.State.String(), formatDate(it.Date))
	if err != nil {
		return fmt.Errorf("store: create action item: %w", err)
	}
	it.ID, err = res.LastInsertId()
	return err
}

// UpdateActionItem overwrites owner, description, state and date.
func (r *Repo) UpdateActionItem(ctx context.Context, it *models.ActionItem) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE action_items SET who = ?, description = ?, state = ?, date = ? WHERE id = ?
	`, it.Who, it.Description, it.State.String(), formatDate(it.Date), it.ID)
	if err != nil {
		return fmt.Errorf("store: update action item: %w", err)
	}
	return expectOne(res, "update action item")
}

// ActionItemsOfMeeting returns the items attached to a meeting.
func (r *Repo) ActionItemsOfMeeting(ctx context.Context, meetingID int64) ([]models.ActionItem, error) {
	return r.queryItems(ctx, `
		SELECT a.id, a.series_id, a.number, a.who, a.description, a.state, a.date
		FROM action_items a JOIN action_item_meetings l ON l.item_id = a.id
		WHERE l.meeting_id = ?
		ORDER BY a.number
	`, meetingID)
}

// ListActionItems returns every item of a series; only unfinished ones when openOnly.
func (r *Repo) ListActionItems(ctx context.Context, seriesID int64, openOnly bool) ([]models.ActionItem, error) {
	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM action_items WHERE series_id = ? ORDER BY number`, seriesID)
	if err != nil {
		return nil, err
	}
	if !openOnly {
		return items, nil
	}
	open := items[:0]
	for _, it := range items {
		if !it.State.IsDone() {
			open = append(open, it)
		}
	}
	return open, nil
}

// DetachActionItem removes the link between an item and a meeting.
func (r *Repo) DetachActionItem(ctx context.Context, itemID, meetingID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM action_item_meetings WHERE item_id = ? AND meeting_id = ?`, itemID, meetingID)
	if err != nil {
		return fmt.Errorf("store: detach action item: %w", err)
	}
	return nil
}

// DeleteActionItemIfOrphan deletes an item that no meeting references any more.
func (r *Repo) DeleteActionItemIfOrphan(ctx context.Context, itemID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM action_items
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM action_item_meetings WHERE item_id = ?)
	`, itemID, itemID)
	if err != nil {
		return false, fmt.Errorf("store: delete action item: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendActionItemToMeeting links an item to a meeting. Linking twice is a no-op.
func (r *Repo) AppendActionItemToMeeting(ctx context.Context, itemID, meetingID int64) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO action_item_meetings (item_id, meeting_id) VALUES (?, ?)`, itemID, meetingID)
	if err != nil {
		return fmt.Errorf("store: append action item: %w", err)
	}
	return nil
}

// MergeActionItem moves every meeting link of drop onto keep, deletes drop
// and records its number as an alias of keep. Both items must belong to the
// same series.
func (r *Repo) MergeActionItem(ctx context.Context, keep, drop *models.ActionItem) error {
	if _, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO action_item_meetings (item_id, meeting_id)
		SELECT ?, meeting_id FROM action_item_meetings WHERE item_id = ?
	`, keep.ID, drop.ID); err != nil {
		return fmt.Errorf("store: merge action item links: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM action_items WHERE id = ?`, drop.ID); err != nil {
		return fmt.Errorf("store: merge action item delete: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `
		UPDATE action_item_aliases SET target = ? WHERE series_id = ? AND target = ?
	`, keep.Number, keep.SeriesID, drop.Number); err != nil {
		return fmt.Errorf("store: merge action item aliases: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO action_item_aliases (series_id, number, target) VALUES (?, ?, ?)
		ON CONFLICT(series_id, number) DO UPDATE SET target = excluded.target
	`, keep.SeriesID, drop.Number, keep.Number); err != nil {
		return fmt.Errorf("store: merge action item alias: %w", err)
	}
	return nil
}

// NewestMeetingOf returns the latest meeting (by date, then id) referencing the item, or nil.
func (r *Repo) NewestMeetingOf(ctx context.Context, itemID int64) (*models.Meeting, error) {
	return r.edgeMeetingOf(ctx, itemID, "DESC")
}

// FirstMeetingOf returns the earliest meeting referencing the item, or nil.
func (r *Repo) FirstMeetingOf(ctx context.Context, itemID int64) (*models.Meeting, error) {
	return r.edgeMeetingOf(ctx, itemID, "ASC")
}

func (r *Repo) edgeMeetingOf(ctx context.Context, itemID int64, dir string) (*models.Meeting, error) {
	m, err := scanMeeting(r.q.QueryRowContext(ctx, `
		SELECT m.id, m.series_id, m.date, m.start_time, m.end_time, m.source, m.meta, m.done, m.updated_at
		FROM meetings m JOIN action_item_meetings l ON l.meeting_id = m.id
		WHERE l.item_id = ?
		ORDER BY m.date `+dir+`, m.id `+dir+`
		LIMIT 1
	`, itemID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ImportLegacyActionItems loads pre-numbering items into the legacy table,
// replacing entries with the same number.
func (r *Repo) ImportLegacyActionItems(ctx context.Context, items []models.LegacyActionItem) (int, error) {
	for _, it := range items {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO legacy_action_items (series_id, number, who, description) VALUES (?, ?, ?, ?)
			ON CONFLICT(series_id, number) DO UPDATE SET
				who         = excluded.who,
				description = excluded.description
		`, it.SeriesID, it.Number, it.Who, it.Description)
		if err != nil {
			return 0, fmt.Errorf("store: import legacy item %d: %w", it.Number, err)
		}
	}
	return len(items), nil
}

func (r *Repo) meetingsOf(ctx context.Context, itemID int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT m.id FROM meetings m JOIN action_item_meetings l ON l.meeting_id = m.id
		WHERE l.item_id = ? ORDER BY m.date, m.id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("store: meetings of item: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) queryItems(ctx context.Context, query string, args ...any) ([]models.ActionItem, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query action items: %w", err)
	}
	var out []models.ActionItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].MeetingIDs, err = r.meetingsOf(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanItem(s scanner) (*models.ActionItem, error) {
	var (
		it          models.ActionItem
		state, date string
	)
	if err := s.Scan(&it.ID, &it.SeriesID, &it.Number, &it.Who, &it.Description, &state, &date); err != nil {
		return nil, err
	}
	st, ok := models.StateFromKey(state)
	if !ok {
		return nil, fmt.Errorf("store: unknown action item state %q", state)
	}
	it.State = st
	var err error
	if it.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	return &it, nil
}
