package semantic

import (
	"context"
	"time"

	"github.com/protokoll/minutes/internal/models"
)

// Repository is the persistence port of the semantic pass. Lookups return
// (nil, nil) when nothing matches. Implementations must serialise writes per
// series; a run assumes exclusive use of the repository for its duration.
type Repository interface {
	FindActionItemByNumber(ctx context.Context, seriesID int64, number int) (*models.ActionItem, error)
	// FindActionItemsByDescription searches items that predate numbering and
	// returns those scoring at least minScore, best first.
	FindActionItemsByDescription(ctx context.Context, seriesID int64, description string, minScore int) ([]models.ActionItemCandidate, error)
	// CreateActionItem assigns the ID, and the next free number when Number is 0.
	CreateActionItem(ctx context.Context, item *models.ActionItem) error
	UpdateActionItem(ctx context.Context, item *models.ActionItem) error
	ActionItemsOfMeeting(ctx context.Context, meetingID int64) ([]models.ActionItem, error)
	DetachActionItem(ctx context.Context, itemID, meetingID int64) error
	DeleteActionItemIfOrphan(ctx context.Context, itemID int64) (bool, error)
	AppendActionItemToMeeting(ctx context.Context, itemID, meetingID int64) error
	NewestMeetingOf(ctx context.Context, itemID int64) (*models.Meeting, error)
	FirstMeetingOf(ctx context.Context, itemID int64) (*models.Meeting, error)

	ReplaceDecisionsOf(ctx context.Context, meetingID int64, decisions []models.Decision) ([]models.Decision, error)
	CreateSubMeeting(ctx context.Context, seriesID int64, date time.Time, start *models.ClockTime) (*models.Meeting, error)
	ReplaceAgendaOf(ctx context.Context, meetingID int64, items []models.AgendaItem) error

	LookupCategory(ctx context.Context, seriesID int64, name string) (*models.Category, error)
	ListCategories(ctx context.Context, seriesID int64) ([]models.Category, error)
	MetaDefaults(ctx context.Context, seriesID int64) ([]models.MetaField, error)
	UpdateMeetingMeta(ctx context.Context, meeting *models.Meeting) error
}
