// Package minutes coordinates the vault, the store and the protocol engine:
// it parses meetings inside one transaction, renders and stores the
// artifacts, records diagnostics and publishes parse events.
package minutes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/checksum"
	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/semantic"
	"github.com/protokoll/minutes/internal/sse"
	"github.com/protokoll/minutes/internal/storage"
	"github.com/protokoll/minutes/internal/store"
)

// Publisher receives the outcome of every parse run.
type Publisher interface {
	PublishProtocolEvent(ev sse.ProtocolEvent)
}

// Options configure the service.
type Options struct {
	Semantic        semantic.Options
	HTMLLevelOffset int
}

// ParseResult summarises a successful parse run.
type ParseResult struct {
	RunID       string               `json:"run_id"`
	Meeting     *models.Meeting      `json:"meeting"`
	Agenda      []models.AgendaItem  `json:"agenda"`
	ActionItems []*models.ActionItem `json:"action_items"`
	Decisions   []models.Decision    `json:"decisions"`
	SubMeetings []*models.Meeting    `json:"sub_meetings"`
	Warnings    []*diag.Diagnostic   `json:"warnings"`
}

// MeetingDetail is a meeting together with its compiled data.
type MeetingDetail struct {
	models.Meeting
	Source      string              `json:"source"`
	Checksum    string              `json:"checksum"`
	Agenda      []models.AgendaItem `json:"agenda"`
	ActionItems []models.ActionItem `json:"action_items"`
	Decisions   []models.Decision   `json:"decisions"`
}

// Service implements the host operations around the protocol engine.
type Service struct {
	db     *store.DB
	vault  storage.Provider
	events Publisher
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a new minutes service. events may be nil.
func NewService(db *store.DB, vault storage.Provider, events Publisher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		vault:  vault,
		events: events,
		opts:   opts,
		logger: logger,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lockSeries serialises writes to one series and returns the unlock func.
func (s *Service) lockSeries(seriesID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[seriesID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[seriesID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Series returns all series.
func (s *Service) Series(ctx context.Context) ([]models.Series, error) {
	return s.db.ListSeries(ctx)
}

// CreateSeries creates a series with its decision categories and meta fields.
func (s *Service) CreateSeries(ctx context.Context, series *models.Series, categories []string, fields []models.MetaField) error {
	return s.db.WithTx(ctx, func(repo *store.Repo) error {
		if err := repo.CreateSeries(ctx, series); err != nil {
			return err
		}
		for _, name := range categories {
			if err := repo.AddCategory(ctx, &models.Category{SeriesID: series.ID, Name: name}); err != nil {
				return err
			}
		}
		for i := range fields {
			fields[i].SeriesID = series.ID
			if err := repo.AddMetaField(ctx, &fields[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Meetings lists the meetings of a series, newest first.
func (s *Service) Meetings(ctx context.Context, seriesID int64) ([]models.Meeting, error) {
	if _, err := s.db.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.db.ListMeetings(ctx, seriesID)
}

// Meeting returns a meeting with its source and compiled data.
func (s *Service) Meeting(ctx context.Context, id int64) (*MeetingDetail, error) {
	m, err := s.db.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &MeetingDetail{Meeting: *m, Source: m.Source, Checksum: checksum.Source(m.Source)}
	if d.Agenda, err = s.db.AgendaOf(ctx, id); err != nil {
		return nil, err
	}
	if d.ActionItems, err = s.db.ActionItemsOfMeeting(ctx, id); err != nil {
		return nil, err
	}
	if d.Decisions, err = s.db.DecisionsOfMeeting(ctx, id); err != nil {
		return nil, err
	}
	d.Agenda = nonNilSlice(d.Agenda)
	d.ActionItems = nonNilSlice(d.ActionItems)
	d.Decisions = nonNilSlice(d.Decisions)
	return d, nil
}

// MeetingAt returns the meeting of a series, identified by short name, on a date.
func (s *Service) MeetingAt(ctx context.Context, shortName string, date time.Time) (*models.Meeting, error) {
	series, err := s.db.SeriesByShortName(ctx, shortName)
	if err != nil {
		return nil, fmt.Errorf("minutes: series %q: %w", shortName, err)
	}
	return s.db.MeetingByDate(ctx, series.ID, date)
}

// CreateMeeting creates a dated meeting of a series. A non-empty source is
// written to the vault but not parsed.
func (s *Service) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	if !m.HasDate() {
		return fmt.Errorf("minutes: meeting needs a date: %w", apperr.ErrInvalidInput)
	}
	series, err := s.db.GetSeries(ctx, m.SeriesID)
	if err != nil {
		return err
	}
	defer s.lockSeries(series.ID)()

	if _, err := s.db.MeetingByDate(ctx, series.ID, m.Date); err == nil {
		return fmt.Errorf("minutes: meeting on %s: %w", m.Date.Format(models.DateLayout), apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err := s.db.CreateMeeting(ctx, m); err != nil {
		return err
	}
	if m.Source == "" {
		return nil
	}
	return s.writeSource(ctx, series, m, m.Source)
}

// UpdateSource replaces the source of a meeting and parses it. A non-empty
// ifMatch must equal the checksum of the current source.
func (s *Service) UpdateSource(ctx context.Context, id int64, source, ifMatch string) (*ParseResult, error) {
	m, err := s.db.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	series, err := s.db.GetSeries(ctx, m.SeriesID)
	if err != nil {
		return nil, err
	}
	defer s.lockSeries(series.ID)()

	if ifMatch != "" && ifMatch != checksum.Source(m.Source) {
		return nil, apperr.ErrConflict
	}
	if !m.HasDate() {
		return nil, fmt.Errorf("minutes: meeting %d has no date: %w", id, apperr.ErrInvalidInput)
	}
	if err := s.writeSource(ctx, series, m, source); err != nil {
		return nil, err
	}
	return s.parse(ctx, id)
}

// Ingest brings a vault file into the store: the meeting is created when
// missing and re-parsed when the file checksum differs from the stored one.
// It reports whether a parse was attempted.
func (s *Service) Ingest(ctx context.Context, f storage.SourceFile) (bool, error) {
	series, err := s.db.SeriesByShortName(ctx, f.Series)
	if err != nil {
		return false, fmt.Errorf("minutes: series %q: %w", f.Series, err)
	}
	defer s.lockSeries(series.ID)()

	m, err := s.db.MeetingByDate(ctx, series.ID, f.Date)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		m = &models.Meeting{SeriesID: series.ID, Date: f.Date}
		if err := s.db.CreateMeeting(ctx, m); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	}

	stored, err := s.db.GetChecksum(ctx, m.ID)
	if err != nil {
		return false, err
	}
	if stored == f.Checksum {
		return false, nil
	}
	data, err := s.vault.Read(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, apperr.ErrNotFound
		}
		return false, err
	}
	source := string(data)
	if err := s.db.UpdateSource(ctx, m.ID, source, checksum.Source(source)); err != nil {
		return false, err
	}
	_, err = s.parse(ctx, m.ID)
	return true, err
}

// Parse compiles the stored source of a meeting.
func (s *Service) Parse(ctx context.Context, id int64) (*ParseResult, error) {
	m, err := s.db.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.lockSeries(m.SeriesID)()
	return s.parse(ctx, id)
}

// parse runs the semantic pass and stores the artifacts in one transaction.
// A fatal diagnostic rolls everything back and is recorded instead. The
// caller holds the series lock.
func (s *Service) parse(ctx context.Context, id int64) (*ParseResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	m, err := s.db.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}

	var res *semantic.Result
	err = s.db.WithTx(ctx, func(repo *store.Repo) error {
		var err error
		if res, err = semantic.Compile(ctx, repo, m, s.opts.Semantic); err != nil {
			return err
		}
		artifacts, err := s.renderAll(res, runID)
		if err != nil {
			return err
		}
		for i := range artifacts {
			if err := repo.SaveArtifact(ctx, &artifacts[i]); err != nil {
				return err
			}
		}
		if err := repo.SetDone(ctx, id, true); err != nil {
			return err
		}
		if err := repo.ClearDiagnostics(ctx, id, ""); err != nil {
			return err
		}
		for _, w := range res.Warnings {
			if err := repo.AddDiagnostic(ctx, id, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if d, ok := diag.As(err); ok {
			s.recordFailure(ctx, m, runID, d)
			return nil, d
		}
		return nil, fmt.Errorf("minutes: parse meeting %d: %w", id, err)
	}

	s.logger.Info("protocol parsed",
		slog.Int64("meeting_id", id),
		slog.String("run_id", runID),
		slog.Int("action_items", len(res.ActionItems)),
		slog.Int("decisions", len(res.Decisions)),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("duration", time.Since(start)),
	)
	s.publish(sse.ProtocolEvent{Kind: sse.KindParsed, MeetingID: id, SeriesID: m.SeriesID, RunID: runID})

	return &ParseResult{
		RunID:       runID,
		Meeting:     res.Meeting,
		Agenda:      nonNilSlice(res.Agenda),
		ActionItems: nonNilSlice(res.ActionItems),
		Decisions:   nonNilSlice(res.Decisions),
		SubMeetings: nonNilSlice(res.SubMeetings),
		Warnings:    nonNilSlice(res.Warnings),
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, m *models.Meeting, runID string, d *diag.Diagnostic) {
	s.logger.Warn("protocol failed",
		slog.Int64("meeting_id", m.ID),
		slog.String("run_id", runID),
		slog.String("phase", string(d.Phase)),
		slog.String("kind", string(d.Kind)),
		slog.Int("line", d.Line),
		slog.String("error", d.Message),
	)
	if err := s.db.ClearDiagnostics(ctx, m.ID, d.Phase); err != nil {
		s.logger.Error("clear diagnostics failed", slog.Int64("meeting_id", m.ID), slog.String("error", err.Error()))
	}
	if err := s.db.AddDiagnostic(ctx, m.ID, d); err != nil {
		s.logger.Error("record diagnostic failed", slog.Int64("meeting_id", m.ID), slog.String("error", err.Error()))
	}
	s.publish(sse.ProtocolEvent{Kind: sse.KindFailed, MeetingID: m.ID, SeriesID: m.SeriesID, RunID: runID, Error: d.Error()})
}

func (s *Service) publish(ev sse.ProtocolEvent) {
	if s.events != nil {
		s.events.PublishProtocolEvent(ev)
	}
}

// renderAll renders every format for both audiences.
func (s *Service) renderAll(res *semantic.Result, runID string) ([]store.Artifact, error) {
	out := make([]store.Artifact, 0, len(render.Formats)*len(render.Visibilities))
	for _, v := range render.Visibilities {
		for _, f := range render.Formats {
			content, err := render.Render(res.Tree, s.renderOptions(f, v, res.NewActionItems))
			if err != nil {
				return nil, err
			}
			out = append(out, store.Artifact{
				MeetingID:  res.Meeting.ID,
				Format:     string(f),
				Visibility: string(v),
				RunID:      runID,
				Content:    content,
			})
		}
	}
	return out, nil
}

func (s *Service) renderOptions(f render.Format, v render.Visibility, fresh map[int64]bool) render.Options {
	return render.Options{
		Format:          f,
		Visibility:      v,
		PrivateKeywords: s.opts.Semantic.PrivateKeywords,
		HTMLLevelOffset: s.opts.HTMLLevelOffset,
		NewActionItems:  fresh,
	}
}

// Artifact returns the stored render of a meeting.
func (s *Service) Artifact(ctx context.Context, meetingID int64, f render.Format, v render.Visibility) (*store.Artifact, error) {
	return s.db.GetArtifact(ctx, meetingID, string(f), string(v))
}

// ActionItems lists the action items of a series.
func (s *Service) ActionItems(ctx context.Context, seriesID int64, openOnly bool) ([]models.ActionItem, error) {
	items, err := s.db.ListActionItems(ctx, seriesID, openOnly)
	return nonNilSlice(items), err
}

// Decisions lists the decisions of a series.
func (s *Service) Decisions(ctx context.Context, seriesID int64) ([]models.Decision, error) {
	decisions, err := s.db.ListDecisions(ctx, seriesID)
	return nonNilSlice(decisions), err
}

// SearchDecisions searches the decision texts of a series.
func (s *Service) SearchDecisions(ctx context.Context, seriesID int64, query string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []store.SearchResult{}, nil
	}
	hits, err := s.db.SearchDecisions(ctx, seriesID, query, limit)
	return nonNilSlice(hits), err
}

// Diagnostics returns the recorded diagnostics of a meeting.
func (s *Service) Diagnostics(ctx context.Context, meetingID int64) ([]store.StoredDiagnostic, error) {
	if _, err := s.db.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	ds, err := s.db.Diagnostics(ctx, meetingID)
	return nonNilSlice(ds), err
}

// ImportLegacy loads pre-numbering action items into the legacy table of a series.
func (s *Service) ImportLegacy(ctx context.Context, seriesShortName string, items []models.LegacyActionItem) (int, error) {
	series, err := s.db.SeriesByShortName(ctx, seriesShortName)
	if err != nil {
		return 0, err
	}
	defer s.lockSeries(series.ID)()
	for i := range items {
		items[i].SeriesID = series.ID
	}
	var n int
	err = s.db.WithTx(ctx, func(repo *store.Repo) error {
		n, err = repo.ImportLegacyActionItems(ctx, items)
		return err
	})
	return n, err
}

// writeSource stores a source in the vault and the store. The caller holds the series lock.
func (s *Service) writeSource(ctx context.Context, series *models.Series, m *models.Meeting, source string) error {
	if err := s.vault.Write(storage.SourcePath(series.ShortName, m.Date), []byte(source)); err != nil {
		return fmt.Errorf("minutes: write source: %w", err)
	}
	return s.db.UpdateSource(ctx, m.ID, source, checksum.Source(source))
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// keywords is a shorthand for the configured private keywords.
func (s *Service) keywords() parser.PrivateKeywords {
	return s.opts.Semantic.PrivateKeywords
}
