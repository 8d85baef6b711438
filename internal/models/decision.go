package models

import "strings"

// Decision is a resolution recorded in exactly one meeting.
type Decision struct {
	ID         int64      `json:"id"`
	MeetingID  int64      `json:"meeting_id"`
	Content    string     `json:"content"`
	Categories []Category `json:"categories,omitempty"`
}

// CategoriesString joins the category names for display.
func (d *Decision) CategoriesString() string {
	names := make([]string, len(d.Categories))
	for i, c := range d.Categories {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
