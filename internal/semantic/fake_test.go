package semantic

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/protokoll/minutes/internal/fuzzy"
	"github.com/protokoll/minutes/internal/models"
)

// memRepo is an in-memory Repository for exercising the pass without a database.
type memRepo struct {
	nextID      int64
	meetings    map[int64]*models.Meeting
	items       map[int64]models.ActionItem
	links       map[int64][]int64
	legacy      []models.LegacyActionItem
	categories  []models.Category
	metas       []models.MetaField
	decisions   map[int64][]models.Decision
	agenda      map[int64][]models.AgendaItem
	subMeetings []*models.Meeting
}

func newMemRepo(meetings ...*models.Meeting) *memRepo {
	r := &memRepo{
		nextID:    100,
		meetings:  make(map[int64]*models.Meeting),
		items:     make(map[int64]models.ActionItem),
		links:     make(map[int64][]int64),
		decisions: make(map[int64][]models.Decision),
		agenda:    make(map[int64][]models.AgendaItem),
	}
	for _, m := range meetings {
		r.meetings[m.ID] = m
	}
	return r
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) FindActionItemByNumber(_ context.Context, seriesID int64, number int) (*models.ActionItem, error) {
	for _, it := range r.items {
		if it.SeriesID == seriesID && it.Number == number {
			it.MeetingIDs = append([]int64(nil), r.links[it.ID]...)
			return &it, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindActionItemsByDescription(_ context.Context, seriesID int64, description string, minScore int) ([]models.ActionItemCandidate, error) {
	var out []models.ActionItemCandidate
	for _, l := range r.legacy {
		if l.SeriesID != seriesID {
			continue
		}
		if score := fuzzy.Score(description, l.Description); score >= minScore {
			out = append(out, models.ActionItemCandidate{Number: l.Number, Who: l.Who, Description: l.Description, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (r *memRepo) CreateActionItem(_ context.Context, item *models.ActionItem) error {
	if item.Number == 0 {
		for _, it := range r.items {
			if it.SeriesID == item.SeriesID {
				item.Number = max(item.Number, it.Number)
			}
		}
		item.Number++
	}
	item.ID = r.id()
	r.items[item.ID] = *item
	return nil
}

func (r *memRepo) UpdateActionItem(_ context.Context, item *models.ActionItem) error {
	r.items[item.ID] = *item
	return nil
}

func (r *memRepo) ActionItemsOfMeeting(_ context.Context, meetingID int64) ([]models.ActionItem, error) {
	var out []models.ActionItem
	for id, ms := range r.links {
		for _, m := range ms {
			if m == meetingID {
				out = append(out, r.items[id])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memRepo) DetachActionItem(_ context.Context, itemID, meetingID int64) error {
	ms := r.links[itemID]
	kept := ms[:0]
	for _, m := range ms {
		if m != meetingID {
			kept = append(kept, m)
		}
	}
	r.links[itemID] = kept
	return nil
}

func (r *memRepo) DeleteActionItemIfOrphan(_ context.Context, itemID int64) (bool, error) {
	if len(r.links[itemID]) > 0 {
		return false, nil
	}
	delete(r.items, itemID)
	delete(r.links, itemID)
	return true, nil
}

func (r *memRepo) AppendActionItemToMeeting(_ context.Context, itemID, meetingID int64) error {
	for _, m := range r.links[itemID] {
		if m == meetingID {
			return nil
		}
	}
	r.links[itemID] = append(r.links[itemID], meetingID)
	return nil
}

func (r *memRepo) NewestMeetingOf(_ context.Context, itemID int64) (*models.Meeting, error) {
	var newest *models.Meeting
	for _, id := range r.links[itemID] {
		m := r.meetings[id]
		if newest == nil || m.Date.After(newest.Date) || (m.Date.Equal(newest.Date) && m.ID > newest.ID) {
			newest = m
		}
	}
	return newest, nil
}

func (r *memRepo) FirstMeetingOf(_ context.Context, itemID int64) (*models.Meeting, error) {
	var first *models.Meeting
	for _, id := range r.links[itemID] {
		m := r.meetings[id]
		if first == nil || m.Date.Before(first.Date) || (m.Date.Equal(first.Date) && m.ID < first.ID) {
			first = m
		}
	}
	return first, nil
}

func (r *memRepo) ReplaceDecisionsOf(_ context.Context, meetingID int64, decisions []models.Decision) ([]models.Decision, error) {
	out := make([]models.Decision, len(decisions))
	for i, d := range decisions {
		d.ID = r.id()
		d.MeetingID = meetingID
		out[i] = d
	}
	r.decisions[meetingID] = out
	return out, nil
}

func (r *memRepo) CreateSubMeeting(_ context.Context, seriesID int64, date time.Time, start *models.ClockTime) (*models.Meeting, error) {
	m := &models.Meeting{ID: r.id(), SeriesID: seriesID, Date: date, Start: start}
	r.meetings[m.ID] = m
	r.subMeetings = append(r.subMeetings, m)
	return m, nil
}

func (r *memRepo) ReplaceAgendaOf(_ context.Context, meetingID int64, items []models.AgendaItem) error {
	r.agenda[meetingID] = items
	return nil
}

func (r *memRepo) LookupCategory(_ context.Context, seriesID int64, name string) (*models.Category, error) {
	for _, c := range r.categories {
		if c.SeriesID == seriesID && strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListCategories(_ context.Context, seriesID int64) ([]models.Category, error) {
	var out []models.Category
	for _, c := range r.categories {
		if c.SeriesID == seriesID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) MetaDefaults(_ context.Context, seriesID int64) ([]models.MetaField, error) {
	var out []models.MetaField
	for _, f := range r.metas {
		if f.SeriesID == seriesID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateMeetingMeta(_ context.Context, meeting *models.Meeting) error {
	r.meetings[meeting.ID] = meeting
	return nil
}

// snapshot lists the observable action item state sorted by number.
func (r *memRepo) snapshot() []models.ActionItem {
	var out []models.ActionItem
	for _, it := range r.items {
		it.MeetingIDs = append([]int64(nil), r.links[it.ID]...)
		sort.Slice(it.MeetingIDs, func(i, j int) bool { return it.MeetingIDs[i] < it.MeetingIDs[j] })
		it.ID = 0
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
