// Package models defines the domain types shared by the protocol engine and its hosts.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the canonical day format used in sources and renders.
const DateLayout = "02.01.2006"

// Series groups the meetings that share a purpose, e.g. a weekly plenary.
type Series struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// Meeting is one occurrence of a series.
type Meeting struct {
	ID        int64             `json:"id"`
	SeriesID  int64             `json:"series_id"`
	Date      time.Time         `json:"date"`
	Start     *ClockTime        `json:"start,omitempty"`
	End       *ClockTime        `json:"end,omitempty"`
	Source    string            `json:"-"`
	Meta      map[string]string `json:"meta,omitempty"`
	Done      bool              `json:"done"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// HasDate reports whether the meeting already carries a date.
func (m *Meeting) HasDate() bool {
	return m != nil && !m.Date.IsZero()
}

// ClockTime is a wall-clock time of day without a date.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Category is a pre-declared decision category of a series.
type Category struct {
	ID       int64  `json:"id"`
	SeriesID int64  `json:"series_id"`
	Name     string `json:"name"`
}

// MetaField is a pre-declared "#key;value" remark every protocol of a series must carry.
type MetaField struct {
	ID       int64  `json:"id"`
	SeriesID int64  `json:"series_id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Default  string `json:"default,omitempty"`
	Internal bool   `json:"internal"`
}

// AgendaItem is a top-level agenda point materialised from a protocol.
type AgendaItem struct {
	ID        int64  `json:"id"`
	MeetingID int64  `json:"meeting_id"`
	Name      string `json:"name"`
	Number    int    `json:"number"`
	Extra     bool   `json:"extra"`
}
