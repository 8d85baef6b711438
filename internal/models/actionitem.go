package models

import (
	"strings"
	"time"
)

// TodoState is the lifecycle state of an action item.
type TodoState int

const (
	StateOpen TodoState = iota
	StateWaiting
	StateInProgress
	StateAfter
	StateBefore
	StateOrphan
	StateDone
	StateRejected
	StateObsolete
)

var stateKeys = map[TodoState]string{
	StateOpen:       "open",
	StateWaiting:    "waiting",
	StateInProgress: "in_progress",
	StateAfter:      "after",
	StateBefore:     "before",
	StateOrphan:     "orphan",
	StateDone:       "done",
	StateRejected:   "rejected",
	StateObsolete:   "obsolete",
}

var stateNames = map[TodoState]string{
	StateOpen:       "offen",
	StateWaiting:    "wartet auf Rückmeldung",
	StateInProgress: "in Bearbeitung",
	StateAfter:      "ab",
	StateBefore:     "vor",
	StateOrphan:     "verwaist",
	StateDone:       "erledigt",
	StateRejected:   "abgewiesen",
	StateObsolete:   "obsolet",
}

// Accepted spellings, lower case. None of them may look like a date.
var nameToState = map[string]TodoState{
	"offen":                  StateOpen,
	"open":                   StateOpen,
	"wartet auf rückmeldung": StateWaiting,
	"wartet":                 StateWaiting,
	"waiting":                StateWaiting,
	"in bearbeitung":         StateInProgress,
	"bearbeitung":            StateInProgress,
	"läuft":                  StateInProgress,
	"in progress":            StateInProgress,
	"ab":                     StateAfter,
	"erst ab":                StateAfter,
	"nicht vor":              StateAfter,
	"wiedervorlage":          StateAfter,
	"after":                  StateAfter,
	"not before":             StateAfter,
	"vor":                    StateBefore,
	"bis":                    StateBefore,
	"nur vor":                StateBefore,
	"nicht nach":             StateBefore,
	"before":                 StateBefore,
	"not after":              StateBefore,
	"verwaist":               StateOrphan,
	"orphan":                 StateOrphan,
	"orphaned":               StateOrphan,
	"erledigt":               StateDone,
	"fertig":                 StateDone,
	"done":                   StateDone,
	"abgewiesen":             StateRejected,
	"abgelehnt":              StateRejected,
	"passiert nicht":         StateRejected,
	"nie":                    StateRejected,
	"niemals":                StateRejected,
	"rejected":               StateRejected,
	"obsolet":                StateObsolete,
	"veraltet":               StateObsolete,
	"zu spät":                StateObsolete,
	"obsolete":               StateObsolete,
}

// LookupState resolves a localized spelling. Matching ignores case and surrounding space.
func LookupState(name string) (TodoState, bool) {
	s, ok := nameToState[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// StateFromKey resolves the stable storage key written by String.
func StateFromKey(key string) (TodoState, bool) {
	for s, k := range stateKeys {
		if k == key {
			return s, true
		}
	}
	return StateOpen, false
}

// String returns the stable storage key of the state.
func (s TodoState) String() string {
	if k, ok := stateKeys[s]; ok {
		return k
	}
	return "unknown"
}

// Name returns the display name.
func (s TodoState) Name() string {
	return stateNames[s]
}

// NeedsDate reports whether the state is only meaningful together with a date.
func (s TodoState) NeedsDate() bool {
	return s == StateAfter || s == StateBefore
}

// IsDone reports whether the item no longer needs attention.
func (s TodoState) IsDone() bool {
	return s == StateDone || s == StateRejected || s == StateObsolete
}

// ActionItem is a persistent todo that survives re-parses and spans meetings.
type ActionItem struct {
	ID          int64     `json:"id"`
	SeriesID    int64     `json:"series_id"`
	Number      int       `json:"number"`
	Who         string    `json:"who"`
	Description string    `json:"description"`
	State       TodoState `json:"state"`
	Date        time.Time `json:"date,omitempty"`
	MeetingIDs  []int64   `json:"meeting_ids,omitempty"`
}

// StateText renders the state with its date, e.g. "ab 15.03.2024".
func (a *ActionItem) StateText() string {
	if a.State.NeedsDate() && !a.Date.IsZero() {
		return a.State.Name() + " " + a.Date.Format(DateLayout)
	}
	return a.State.Name()
}

// ActionItemCandidate is a historic (pre-numbering) item matched by description.
type ActionItemCandidate struct {
	Number      int    `json:"number"`
	Who         string `json:"who"`
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// LegacyActionItem is an entry of the per-series historic table.
type LegacyActionItem struct {
	SeriesID    int64  `yaml:"-" json:"series_id"`
	Number      int    `yaml:"number" json:"number"`
	Who         string `yaml:"who" json:"who"`
	Description string `yaml:"description" json:"description"`
}
