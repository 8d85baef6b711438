package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/fuzzy"
	"github.com/protokoll/minutes/internal/models"
)

func (r *run) reconcileActionItems(ctx context.Context) error {
	current, err := r.repo.ActionItemsOfMeeting(ctx, r.meeting.ID)
	if err != nil {
		return fmt.Errorf("semantic: action items of meeting: %w", err)
	}
	attached := r.matchAttached(current)

	preserved := make(map[int]bool)
	for i, t := range r.todos {
		if t.todo.HasNumber {
			preserved[t.todo.Number] = true
		} else if item, ok := attached[i]; ok {
			preserved[item.Number] = true
		}
	}
	for _, item := range current {
		if preserved[item.Number] {
			continue
		}
		if err := r.repo.DetachActionItem(ctx, item.ID, r.meeting.ID); err != nil {
			return fmt.Errorf("semantic: detach action item %d: %w", item.Number, err)
		}
		if _, err := r.repo.DeleteActionItemIfOrphan(ctx, item.ID); err != nil {
			return fmt.Errorf("semantic: delete action item %d: %w", item.Number, err)
		}
	}

	for i, t := range r.todos {
		item, ok := attached[i]
		if !ok {
			if item, err = r.resolveActionItem(ctx, t); err != nil {
				return err
			}
		}
		if err := r.repo.AppendActionItemToMeeting(ctx, item.ID, r.meeting.ID); err != nil {
			return fmt.Errorf("semantic: append action item %d: %w", item.Number, err)
		}
		newest, err := r.repo.NewestMeetingOf(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("semantic: newest meeting of %d: %w", item.Number, err)
		}
		if newest == nil || newest.ID == r.meeting.ID {
			item.Who = t.todo.Who
			item.Description = t.todo.Description
			item.State = t.todo.State
			item.Date = t.todo.Date
			if err := r.repo.UpdateActionItem(ctx, item); err != nil {
				return fmt.Errorf("semantic: update action item %d: %w", item.Number, err)
			}
		}
		first, err := r.repo.FirstMeetingOf(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("semantic: first meeting of %d: %w", item.Number, err)
		}
		if first == nil || first.ID == r.meeting.ID {
			r.res.NewActionItems[item.ID] = true
		}
		t.tag.ActionItem = item
		r.res.ActionItems = append(r.res.ActionItems, item)
	}
	return nil
}

// matchAttached pairs todos without an id with the items already linked to
// the meeting, keyed by todo index, so a re-parse keeps their numbers. Each
// item pairs at most once. All todos get an exact owner and description
// match first, then an exact description match, then the best fuzzy score.
func (r *run) matchAttached(current []models.ActionItem) map[int]*models.ActionItem {
	claimed := make(map[int]bool)
	for _, t := range r.todos {
		if t.todo.HasNumber {
			claimed[t.todo.Number] = true
		}
	}
	out := make(map[int]*models.ActionItem)
	passes := []func(t todoTag, item *models.ActionItem) int{
		func(t todoTag, item *models.ActionItem) int {
			if strings.EqualFold(item.Who, t.todo.Who) && item.Description == t.todo.Description {
				return 100
			}
			return -1
		},
		func(t todoTag, item *models.ActionItem) int {
			if item.Description == t.todo.Description {
				return 100
			}
			return -1
		},
		func(t todoTag, item *models.ActionItem) int {
			if score := fuzzy.Score(t.todo.Description, item.Description); score >= r.opts.FuzzyMinScore {
				return score
			}
			return -1
		},
	}
	for _, score := range passes {
		for i, t := range r.todos {
			if _, done := out[i]; done || t.todo.HasNumber {
				continue
			}
			best, bestScore := -1, -1
			for j := range current {
				if claimed[current[j].Number] {
					continue
				}
				if s := score(t, &current[j]); s > bestScore {
					best, bestScore = j, s
				}
			}
			if best < 0 {
				continue
			}
			item := current[best]
			claimed[item.Number] = true
			out[i] = &item
		}
	}
	return out
}

// resolveActionItem finds the persistent item a todo tag refers to, or
// creates it. With an id the number decides; without, the description is
// matched against the historic table of the series.
func (r *run) resolveActionItem(ctx context.Context, t todoTag) (*models.ActionItem, error) {
	number := 0
	if t.todo.HasNumber {
		item, err := r.repo.FindActionItemByNumber(ctx, r.meeting.SeriesID, t.todo.Number)
		if err != nil {
			return nil, fmt.Errorf("semantic: find action item %d: %w", t.todo.Number, err)
		}
		if item != nil {
			return item, nil
		}
		if !r.opts.Lax {
			return nil, diag.New(diag.PhaseCompiling, diag.KindTagShape, t.tag.Line,
				"there is no action item with id %d", t.todo.Number)
		}
		r.warnings.Add(diag.Warning(diag.PhaseCompiling, diag.KindTagShape, t.tag.Line,
			"there is no action item with id %d, creating a new one", t.todo.Number))
		number = t.todo.Number
	} else {
		candidates, err := r.repo.FindActionItemsByDescription(ctx, r.meeting.SeriesID, t.todo.Description, r.opts.FuzzyMinScore)
		if err != nil {
			return nil, fmt.Errorf("semantic: find action items by description: %w", err)
		}
		if c, ok := pickCandidate(t.todo.Who, t.todo.Description, candidates, r.opts.FuzzyMinScore); ok {
			item, err := r.repo.FindActionItemByNumber(ctx, r.meeting.SeriesID, c.Number)
			if err != nil {
				return nil, fmt.Errorf("semantic: find action item %d: %w", c.Number, err)
			}
			if item != nil {
				return item, nil
			}
			number = c.Number
		}
	}

	item := &models.ActionItem{
		SeriesID:    r.meeting.SeriesID,
		Number:      number,
		Who:         t.todo.Who,
		Description: t.todo.Description,
		State:       t.todo.State,
		Date:        t.todo.Date,
	}
	if err := r.repo.CreateActionItem(ctx, item); err != nil {
		return nil, fmt.Errorf("semantic: create action item: %w", err)
	}
	return item, nil
}

// pickCandidate applies the match order: exact owner and description, then
// exact description, then the best fuzzy score reaching minScore.
func pickCandidate(who, description string, candidates []models.ActionItemCandidate, minScore int) (models.ActionItemCandidate, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c.Who, who) && c.Description == description {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.Description == description {
			return c, true
		}
	}
	descriptions := make([]string, len(candidates))
	for i, c := range candidates {
		descriptions[i] = c.Description
	}
	if i, score := fuzzy.Best(description, descriptions); i >= 0 && score >= minScore {
		return candidates[i], true
	}
	return models.ActionItemCandidate{}, false
}
