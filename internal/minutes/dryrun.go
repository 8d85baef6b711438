package minutes

import (
	"context"
	"errors"

	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/semantic"
	"github.com/protokoll/minutes/internal/store"
)

// errDryRun aborts the dry-run transaction after a successful compile.
var errDryRun = errors.New("minutes: dry run")

// DryRunRequest describes a source checked against a series without keeping any change.
type DryRunRequest struct {
	SeriesID   int64
	Source     string
	Format     render.Format // empty means no render
	Visibility render.Visibility
}

// DryRunResult is what a parse of the source would produce.
type DryRunResult struct {
	Dump        string               `json:"dump"`
	Meeting     *models.Meeting      `json:"meeting"`
	Agenda      []models.AgendaItem  `json:"agenda"`
	ActionItems []*models.ActionItem `json:"action_items"`
	Decisions   []models.Decision    `json:"decisions"`
	Warnings    []*diag.Diagnostic   `json:"warnings"`
	Rendered    string               `json:"rendered,omitempty"`
	Extras      []string             `json:"extras,omitempty"` // typeset only
}

// DryRun parses and compiles a source as if it belonged to a new meeting of
// the series, then rolls every change back. Fatal diagnostics are returned
// as errors.
func (s *Service) DryRun(ctx context.Context, req DryRunRequest) (*DryRunResult, error) {
	if _, err := s.db.GetSeries(ctx, req.SeriesID); err != nil {
		return nil, err
	}
	if req.Visibility == "" {
		req.Visibility = render.Internal
	}

	var out *DryRunResult
	err := s.db.WithTx(ctx, func(repo *store.Repo) error {
		m := &models.Meeting{SeriesID: req.SeriesID, Source: req.Source}
		if err := repo.CreateMeeting(ctx, m); err != nil {
			return err
		}
		res, err := semantic.Compile(ctx, repo, m, s.opts.Semantic)
		if err != nil {
			return err
		}
		out = &DryRunResult{
			Dump:        parser.Dump(res.Tree),
			Meeting:     res.Meeting,
			Agenda:      nonNilSlice(res.Agenda),
			ActionItems: nonNilSlice(res.ActionItems),
			Decisions:   nonNilSlice(res.Decisions),
			Warnings:    nonNilSlice(res.Warnings),
		}
		if req.Format == "" {
			return errDryRun
		}
		opts := s.renderOptions(req.Format, req.Visibility, res.NewActionItems)
		if out.Rendered, err = render.Render(res.Tree, opts); err != nil {
			return err
		}
		if req.Format != render.FormatTypeset {
			return errDryRun
		}
		for _, n := range render.ExtraTops(res.Tree, s.keywords(), req.Visibility) {
			extra, err := render.Extra(res.Tree, n.ID, opts)
			if err != nil {
				return err
			}
			out.Extras = append(out.Extras, extra)
		}
		return errDryRun
	})
	if errors.Is(err, errDryRun) {
		return out, nil
	}
	if err == nil {
		return nil, errors.New("minutes: dry run committed")
	}
	return nil, err
}
