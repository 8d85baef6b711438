package minutes

import (
	"context"
	"fmt"
	"time"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/store"
)

// ActionItemChange is a partial edit of an action item. Nil fields stay unchanged.
type ActionItemChange struct {
	Who         *string
	Description *string
	State       *models.TodoState
	Date        *time.Time
}

// UpdateActionItem edits the item with the given number outside of any source.
// The next parse of a meeting carrying the item may overwrite the edit.
func (s *Service) UpdateActionItem(ctx context.Context, seriesID int64, number int, change ActionItemChange) (*models.ActionItem, error) {
	if _, err := s.db.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	defer s.lockSeries(seriesID)()

	var out *models.ActionItem
	err := s.db.WithTx(ctx, func(repo *store.Repo) error {
		it, err := findItem(ctx, repo, seriesID, number)
		if err != nil {
			return err
		}
		if change.Who != nil {
			it.Who = *change.Who
		}
		if change.Description != nil {
			it.Description = *change.Description
		}
		if change.State != nil {
			it.State = *change.State
			if !it.State.NeedsDate() {
				it.Date = time.Time{}
			}
		}
		if change.Date != nil {
			it.Date = *change.Date
		}
		if it.State.NeedsDate() && it.Date.IsZero() {
			return fmt.Errorf("minutes: state %q needs a date: %w", it.State.Name(), apperr.ErrInvalidInput)
		}
		if err := repo.UpdateActionItem(ctx, it); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("action item updated", "series_id", seriesID, "number", out.Number, "state", out.State.String())
	return out, nil
}

// MergeActionItems folds the item numbered drop into the item numbered keep.
// keep gains every meeting of drop and takes over drop's state when that
// state is further along; drop is deleted and its number refers to keep
// from then on.
func (s *Service) MergeActionItems(ctx context.Context, seriesID int64, keep, drop int) (*models.ActionItem, error) {
	if _, err := s.db.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	defer s.lockSeries(seriesID)()

	var out *models.ActionItem
	err := s.db.WithTx(ctx, func(repo *store.Repo) error {
		k, err := findItem(ctx, repo, seriesID, keep)
		if err != nil {
			return err
		}
		d, err := findItem(ctx, repo, seriesID, drop)
		if err != nil {
			return err
		}
		if k.ID == d.ID {
			return fmt.Errorf("minutes: merge action item %d into itself: %w", keep, apperr.ErrInvalidInput)
		}
		if d.State > k.State {
			k.State, k.Date = d.State, d.Date
			if err := repo.UpdateActionItem(ctx, k); err != nil {
				return err
			}
		}
		if err := repo.MergeActionItem(ctx, k, d); err != nil {
			return err
		}
		out, err = repo.FindActionItemByNumber(ctx, seriesID, k.Number)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("action items merged", "series_id", seriesID, "keep", out.Number, "drop", drop)
	return out, nil
}

func findItem(ctx context.Context, repo *store.Repo, seriesID int64, number int) (*models.ActionItem, error) {
	it, err := repo.FindActionItemByNumber(ctx, seriesID, number)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, fmt.Errorf("minutes: action item %d: %w", number, apperr.ErrNotFound)
	}
	return it, nil
}
