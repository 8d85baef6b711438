package api

import (
	"context"

	"github.com/protokoll/minutes/internal/minutes"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/store"
)

// Service is the part of the minutes service the handlers use.
type Service interface {
	Series(ctx context.Context) ([]models.Series, error)
	CreateSeries(ctx context.Context, s *models.Series, categories []string, fields []models.MetaField) error
	Meetings(ctx context.Context, seriesID int64) ([]models.Meeting, error)
	Meeting(ctx context.Context, id int64) (*minutes.MeetingDetail, error)
	CreateMeeting(ctx context.Context, m *models.Meeting) error
	UpdateSource(ctx context.Context, id int64, source, ifMatch string) (*minutes.ParseResult, error)
	Parse(ctx context.Context, id int64) (*minutes.ParseResult, error)
	Artifact(ctx context.Context, meetingID int64, f render.Format, v render.Visibility) (*store.Artifact, error)
	Diagnostics(ctx context.Context, meetingID int64) ([]store.StoredDiagnostic, error)
	ActionItems(ctx context.Context, seriesID int64, openOnly bool) ([]models.ActionItem, error)
	UpdateActionItem(ctx context.Context, seriesID int64, number int, change minutes.ActionItemChange) (*models.ActionItem, error)
	MergeActionItems(ctx context.Context, seriesID int64, keep, drop int) (*models.ActionItem, error)
	Decisions(ctx context.Context, seriesID int64) ([]models.Decision, error)
	SearchDecisions(ctx context.Context, seriesID int64, query string, limit int) ([]store.SearchResult, error)
}

var _ Service = (*minutes.Service)(nil)
