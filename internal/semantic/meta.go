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

// Remark keys every protocol has to carry.
const (
	KeyDate  = "Datum"
	KeyStart = "Beginn"
	KeyEnd   = "Ende"
)

// extractMeta reads the root remarks into the meeting. Problems are fatal
// unless the run is lax, in which case they become warnings.
func (r *run) extractMeta(ctx context.Context) error {
	// A repeated key overrides the earlier remark.
	remarks := make(map[string]*parser.Node)
	for _, n := range r.tree.Remarks() {
		remarks[n.Key] = n
	}
	fields, err := r.repo.MetaDefaults(ctx, r.meeting.SeriesID)
	if err != nil {
		return fmt.Errorf("semantic: meta defaults: %w", err)
	}

	required := []string{KeyDate, KeyStart, KeyEnd}
	for _, f := range fields {
		required = append(required, f.Key)
	}
	var missing []string
	for _, key := range required {
		if _, ok := remarks[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		if err := r.metaProblem(0, "missing meta fields: %s", strings.Join(missing, ", ")); err != nil {
			return err
		}
	}

	if n, ok := remarks[KeyDate]; ok {
		ref := r.opts.now()
		if r.meeting.HasDate() {
			ref = r.meeting.Date
		}
		date, err := tags.ParseDate(n.Value, r.opts.Lax, ref)
		switch {
		case err != nil:
			if err := r.metaProblem(n.Line, "%s: %v", KeyDate, err); err != nil {
				return err
			}
		case r.meeting.HasDate() && !date.Equal(r.meeting.Date):
			if err := r.metaProblem(n.Line, "date not matching: the protocol says %s, the meeting is on %s",
				date.Format(models.DateLayout), r.meeting.Date.Format(models.DateLayout)); err != nil {
				return err
			}
		default:
			r.meeting.Date = date
		}
	}
	clocks := []struct {
		key string
		dst **models.ClockTime
	}{{KeyStart, &r.meeting.Start}, {KeyEnd, &r.meeting.End}}
	for _, c := range clocks {
		key, dst := c.key, c.dst
		n, ok := remarks[key]
		if !ok {
			continue
		}
		clock, err := models.ParseClock(n.Value)
		if err != nil {
			if err := r.metaProblem(n.Line, "%s: %v", key, err); err != nil {
				return err
			}
			continue
		}
		*dst = &clock
	}

	if r.meeting.Meta == nil {
		r.meeting.Meta = make(map[string]string)
	}
	for _, f := range fields {
		if n, ok := remarks[f.Key]; ok {
			r.meeting.Meta[f.Key] = n.Value
		} else if f.Default != "" {
			r.meeting.Meta[f.Key] = f.Default
		}
	}
	return nil
}

func (r *run) metaProblem(line int, format string, args ...any) error {
	if r.opts.Lax {
		r.warnings.Add(diag.Warning(diag.PhaseCompiling, diag.KindMeta, line, format, args...).
			WithContext(r.meeting.Source, r.opts.ErrorContextLines))
		return nil
	}
	return diag.New(diag.PhaseCompiling, diag.KindMeta, line, format, args...)
}
