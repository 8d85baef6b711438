// Package tags decodes the payload of the inline tags recognised in protocol sources.
package tags

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/parser"
)

// IDFieldPrefix starts the todo field carrying a stable item number.
const IDFieldPrefix = "id "

// Todo is the decoded payload of a [todo;who;what;field...] tag.
type Todo struct {
	Who         string
	Description string
	Number      int
	HasNumber   bool
	State       models.TodoState
	Date        time.Time
}

// DecodeTodo decodes a todo tag. In lax mode dates without year are accepted.
func DecodeTodo(tag *parser.Tag, lax bool, now time.Time) (*Todo, error) {
	if len(tag.Args) < 2 {
		return nil, shapeError(tag, "the todo tag needs at least who and what, e.g. [todo;Alice;Bericht schreiben]")
	}
	todo := &Todo{
		Who:         tag.Args[0],
		Description: tag.Args[1],
		State:       models.StateOpen,
	}
	stateSet := false
	for _, field := range tag.Args[2:] {
		if field == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(field), IDFieldPrefix) {
			n, err := strconv.Atoi(strings.TrimSpace(field[len(IDFieldPrefix):]))
			if err != nil {
				return nil, shapeError(tag, "the todo has a non-numerical id %q, expected something like \"id 1234\"", field)
			}
			todo.Number, todo.HasNumber = n, true
			continue
		}
		if state, ok := models.LookupState(field); ok {
			todo.State, stateSet = state, true
			continue
		}
		if LooksLikeDate(field) {
			date, err := ParseDate(field, lax, now)
			if err != nil {
				return nil, shapeError(tag, "%v", err)
			}
			todo.Date = date
			continue
		}
		// State with trailing date, e.g. "vor 01.05.2024".
		if i := strings.LastIndex(field, " "); i > 0 {
			if state, ok := models.LookupState(field[:i]); ok {
				date, err := ParseDate(field[i+1:], lax, now)
				if err != nil {
					return nil, shapeError(tag, "%v", err)
				}
				todo.State, todo.Date, stateSet = state, date, true
				continue
			}
		}
		return nil, shapeError(tag, "unknown todo state %q (known states: %s)", field, strings.Join(KnownStates(), ", "))
	}
	if !stateSet {
		todo.State = models.StateOpen
	}
	if todo.State.NeedsDate() && todo.Date.IsZero() {
		return nil, shapeError(tag, "the todo state %q needs a date", todo.State.Name())
	}
	return todo, nil
}

// Decision is the decoded payload of a [beschluss;text;category...] tag.
type Decision struct {
	Content    string
	Categories []string
}

// DecodeDecision decodes a beschluss tag.
func DecodeDecision(tag *parser.Tag) (*Decision, error) {
	if len(tag.Args) == 0 || tag.Args[0] == "" {
		return nil, shapeError(tag, "the decision is empty")
	}
	d := &Decision{Content: tag.Args[0]}
	for _, c := range tag.Args[1:] {
		if c != "" {
			d.Categories = append(d.Categories, c)
		}
	}
	return d, nil
}

// Meeting is the decoded payload of a [sitzung;date;time?] tag.
type Meeting struct {
	Date  time.Time
	Start *models.ClockTime
}

// DecodeMeeting decodes a sitzung tag.
func DecodeMeeting(tag *parser.Tag, now time.Time) (*Meeting, error) {
	if len(tag.Args) < 1 || len(tag.Args) > 2 {
		return nil, shapeError(tag, "the sitzung tag needs a date and optionally a time, e.g. [sitzung;15.03.2024;18:00]")
	}
	date, err := ParseMeetingDate(tag.Args[0], now)
	if err != nil {
		return nil, shapeError(tag, "%v", err)
	}
	m := &Meeting{Date: date}
	if len(tag.Args) == 2 && tag.Args[1] != "" {
		start, err := models.ParseClock(tag.Args[1])
		if err != nil {
			return nil, shapeError(tag, "%v", err)
		}
		m.Start = &start
	}
	return m, nil
}

// Validate checks the shape of a tag without touching any state. Unknown
// tag names are rejected here.
func Validate(tag *parser.Tag, lax bool, now time.Time) error {
	switch tag.Kind {
	case parser.TagTodo:
		_, err := DecodeTodo(tag, lax, now)
		return err
	case parser.TagDecision:
		_, err := DecodeDecision(tag)
		return err
	case parser.TagMeeting:
		_, err := DecodeMeeting(tag, now)
		return err
	case parser.TagURL, parser.TagFootnote:
		if len(tag.Args) == 0 || tag.Args[0] == "" {
			return shapeError(tag, "the %s tag needs a value", tag.Name)
		}
		return nil
	default:
		return shapeError(tag, "invalid tag kind %q; likely missing semicolon (known tags: %s)",
			tag.Name, strings.Join(parser.KnownTags, ", "))
	}
}

// FootnoteHash derives the stable anchor of a footnote text: the sum of
// each character code times its position, modulo 100000.
func FootnoteHash(text string) string {
	const mod = 100000
	sum, i := 0, 0
	for _, r := range text {
		sum = (sum + int(r)*i) % mod
		i++
	}
	return strconv.Itoa(sum)
}

// KnownStates lists the accepted state spellings, sorted.
func KnownStates() []string {
	var out []string
	for s := models.StateOpen; s <= models.StateObsolete; s++ {
		out = append(out, s.Name())
	}
	sort.Strings(out)
	return out
}

func shapeError(tag *parser.Tag, format string, args ...any) error {
	return diag.New(diag.PhaseCompiling, diag.KindTagShape, tag.Line, format, args...)
}

// Describe formats a tag like it appears in the source.
func Describe(tag *parser.Tag) string {
	return fmt.Sprintf("[%s]", strings.Join(append([]string{tag.Name}, tag.Args...), ";"))
}
