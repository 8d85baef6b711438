// Package semantic runs the compile pass over a parsed protocol: it reads the
// meta remarks, validates every tag and reconciles action items, decisions,
// announced meetings and agenda items with the repository.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/tags"
)

// Result is what a successful run produced.
type Result struct {
	Tree        *parser.Tree
	Meeting     *models.Meeting
	ActionItems []*models.ActionItem
	Decisions   []models.Decision
	SubMeetings []*models.Meeting
	Agenda      []models.AgendaItem
	Warnings    []*diag.Diagnostic

	// NewActionItems holds the IDs of items whose first meeting is this one.
	NewActionItems map[int64]bool
}

// Parse checks the source against the empty placeholder and parses it.
// Diagnostics carry source context.
func Parse(source string, opts Options) (*parser.Tree, error) {
	if opts.EmptySourcePlaceholder != "" && strings.TrimSpace(source) == strings.TrimSpace(opts.EmptySourcePlaceholder) {
		return nil, diag.New(diag.PhaseParsing, diag.KindEmptySource, 0, "source is empty")
	}
	tree, err := parser.Parse(source)
	if err != nil {
		if d, ok := diag.As(err); ok {
			return nil, d.WithContext(source, opts.ErrorContextLines)
		}
		return nil, err
	}
	return tree, nil
}

// Compile parses meeting.Source and runs the pass on it.
func Compile(ctx context.Context, repo Repository, meeting *models.Meeting, opts Options) (*Result, error) {
	tree, err := Parse(meeting.Source, opts)
	if err != nil {
		return nil, err
	}
	return Run(ctx, repo, meeting, tree, opts)
}

// Run executes the pass on an already parsed tree. The first fatal
// diagnostic is returned as error; mutations made before it are not undone,
// so callers run it inside a transaction they roll back on error.
func Run(ctx context.Context, repo Repository, meeting *models.Meeting, tree *parser.Tree, opts Options) (*Result, error) {
	r := &run{
		repo:    repo,
		meeting: meeting,
		tree:    tree,
		opts:    opts,
		res:     &Result{Tree: tree, Meeting: meeting, NewActionItems: make(map[int64]bool)},
	}
	if err := r.exec(ctx); err != nil {
		if d, ok := diag.As(err); ok {
			return nil, d.WithContext(meeting.Source, opts.ErrorContextLines)
		}
		return nil, err
	}
	r.res.Warnings = r.warnings.Warnings()
	return r.res, nil
}

type run struct {
	repo     Repository
	meeting  *models.Meeting
	tree     *parser.Tree
	opts     Options
	res      *Result
	warnings diag.Collector

	todos     []todoTag
	decisions []decisionTag
	meetings  []meetingTag
}

type todoTag struct {
	tag  *parser.Tag
	todo *tags.Todo
}

type decisionTag struct {
	tag      *parser.Tag
	decision models.Decision
}

type meetingTag struct {
	tag     *parser.Tag
	meeting *tags.Meeting
}

func (r *run) exec(ctx context.Context) error {
	if err := r.extractMeta(ctx); err != nil {
		return err
	}
	if err := r.harvestTags(ctx); err != nil {
		return err
	}
	// Everything above only reads.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.repo.UpdateMeetingMeta(ctx, r.meeting); err != nil {
		return fmt.Errorf("semantic: update meeting: %w", err)
	}
	if err := r.reconcileActionItems(ctx); err != nil {
		return err
	}
	if err := r.reconcileDecisions(ctx); err != nil {
		return err
	}
	if err := r.createSubMeetings(ctx); err != nil {
		return err
	}
	return r.materializeAgenda(ctx)
}

// harvestTags validates every tag in document order and resolves everything
// that needs only reads: todo fields, decision categories and publicity,
// announced meetings.
func (r *run) harvestTags(ctx context.Context) error {
	now := r.opts.now()
	for _, tag := range r.tree.Tags() {
		if err := tags.Validate(tag, r.opts.Lax, now); err != nil {
			return err
		}
		switch tag.Kind {
		case parser.TagTodo:
			todo, err := tags.DecodeTodo(tag, r.opts.Lax, now)
			if err != nil {
				return err
			}
			r.todos = append(r.todos, todoTag{tag: tag, todo: todo})
		case parser.TagDecision:
			dec, err := r.resolveDecision(ctx, tag)
			if err != nil {
				return err
			}
			r.decisions = append(r.decisions, decisionTag{tag: tag, decision: dec})
		case parser.TagMeeting:
			m, err := tags.DecodeMeeting(tag, now)
			if err != nil {
				return err
			}
			r.meetings = append(r.meetings, meetingTag{tag: tag, meeting: m})
		}
	}
	return nil
}

func (r *run) resolveDecision(ctx context.Context, tag *parser.Tag) (models.Decision, error) {
	decoded, err := tags.DecodeDecision(tag)
	if err != nil {
		return models.Decision{}, err
	}
	if !r.tree.Visible(tag.Fork, r.opts.PrivateKeywords, false) {
		return models.Decision{}, diag.New(diag.PhaseCompiling, diag.KindSemantic, tag.Line,
			"decision %q is inside an internal section; decisions must be public", decoded.Content)
	}
	dec := models.Decision{MeetingID: r.meeting.ID, Content: decoded.Content}
	for _, name := range decoded.Categories {
		cat, err := r.repo.LookupCategory(ctx, r.meeting.SeriesID, name)
		if err != nil {
			return models.Decision{}, fmt.Errorf("semantic: lookup category: %w", err)
		}
		if cat == nil {
			known, err := r.repo.ListCategories(ctx, r.meeting.SeriesID)
			if err != nil {
				return models.Decision{}, fmt.Errorf("semantic: list categories: %w", err)
			}
			names := make([]string, len(known))
			for i, c := range known {
				names[i] = c.Name
			}
			return models.Decision{}, diag.New(diag.PhaseCompiling, diag.KindTagShape, tag.Line,
				"unknown decision category %q (known categories: %s)", name, strings.Join(names, ", "))
		}
		dec.Categories = append(dec.Categories, *cat)
	}
	return dec, nil
}

func (r *run) reconcileDecisions(ctx context.Context) error {
	decisions := make([]models.Decision, len(r.decisions))
	for i, d := range r.decisions {
		decisions[i] = d.decision
	}
	created, err := r.repo.ReplaceDecisionsOf(ctx, r.meeting.ID, decisions)
	if err != nil {
		return fmt.Errorf("semantic: replace decisions: %w", err)
	}
	if len(created) != len(r.decisions) {
		return fmt.Errorf("semantic: replace decisions: got %d, want %d", len(created), len(r.decisions))
	}
	for i := range created {
		dec := created[i]
		r.decisions[i].tag.Decision = &dec
	}
	r.res.Decisions = created
	return nil
}

func (r *run) createSubMeetings(ctx context.Context) error {
	for _, mt := range r.meetings {
		m, err := r.repo.CreateSubMeeting(ctx, r.meeting.SeriesID, mt.meeting.Date, mt.meeting.Start)
		if err != nil {
			return fmt.Errorf("semantic: create meeting: %w", err)
		}
		r.res.SubMeetings = append(r.res.SubMeetings, m)
	}
	return nil
}

func (r *run) materializeAgenda(ctx context.Context) error {
	var items []models.AgendaItem
	for _, n := range r.tree.TopForks() {
		items = append(items, models.AgendaItem{
			MeetingID: r.meeting.ID,
			Name:      n.Name,
			Number:    r.tree.TopNumber(n.ID),
			Extra:     n.Extra,
		})
	}
	if err := r.repo.ReplaceAgendaOf(ctx, r.meeting.ID, items); err != nil {
		return fmt.Errorf("semantic: replace agenda: %w", err)
	}
	r.res.Agenda = items
	return nil
}
