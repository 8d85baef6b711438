package api

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/protokoll/minutes/internal/minutes"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/store"
	"github.com/protokoll/minutes/internal/tags"
)

// shortNamePattern restricts series short names to safe vault directory names.
var shortNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// MetaFieldRequest declares a meta field of a new series.
type MetaFieldRequest struct {
	Key      string `json:"key" example:"Ort"`
	Name     string `json:"name" example:"Ort"`
	Default  string `json:"default" example:"Raum 1"`
	Internal bool   `json:"internal"`
}

// Validate validates the meta field.
func (m MetaFieldRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Key, validation.Required),
	)
}

// CreateSeriesRequest is the request body for creating a series.
type CreateSeriesRequest struct {
	Name       string             `json:"name" example:"Plenum"`
	ShortName  string             `json:"short_name" example:"plenum"`
	Categories []string           `json:"categories" example:"Finanzen,Raum"`
	MetaFields []MetaFieldRequest `json:"meta_fields"`
}

// Validate validates the request.
func (r *CreateSeriesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.ShortName, validation.Required, validation.Match(shortNamePattern)),
		validation.Field(&r.Categories, validation.Each(validation.Required)),
		validation.Field(&r.MetaFields),
	)
}

// CreateMeetingRequest is the request body for creating a meeting.
type CreateMeetingRequest struct {
	SeriesID int64  `json:"series_id" example:"1"`
	Date     string `json:"date" example:"01.03.2024"`
	Source   string `json:"source"`
}

// Validate validates the request.
func (r *CreateMeetingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SeriesID, validation.Required),
		validation.Field(&r.Date, validation.Required, validation.By(func(any) error {
			_, err := r.When()
			return err
		})),
	)
}

// When returns the meeting date.
func (r *CreateMeetingRequest) When() (time.Time, error) {
	return tags.ParseMeetingDate(r.Date, time.Now())
}

// UpdateSourceRequest is the request body for replacing a meeting source.
type UpdateSourceRequest struct {
	Source string `json:"source"`
}

// Validate validates the request.
func (r *UpdateSourceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Source, validation.Required),
	)
}

// RenderResponse is a stored render of a meeting.
type RenderResponse = store.Artifact

// ActionItemListResponse wraps the action items of a series.
type ActionItemListResponse struct {
	ActionItems []models.ActionItem `json:"action_items"`
}

// DecisionListResponse wraps the decisions of a series.
type DecisionListResponse struct {
	Decisions []models.Decision `json:"decisions"`
}

// UpdateActionItemRequest is the request body for editing an action item.
// Omitted fields stay unchanged; state takes any accepted spelling.
type UpdateActionItemRequest struct {
	Who         *string `json:"who" example:"Bob"`
	Description *string `json:"description" example:"Bericht schreiben"`
	State       *string `json:"state" example:"ab"`
	Date        *string `json:"date" example:"15.03.2024"`
}

// Validate validates the request.
func (r *UpdateActionItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Description, validation.NilOrNotEmpty),
		validation.Field(&r.State, validation.NilOrNotEmpty, validation.By(func(any) error {
			if r.State == nil {
				return nil
			}
			if _, ok := models.LookupState(*r.State); !ok {
				return validation.NewError("validation_state_unknown", "unknown state")
			}
			return nil
		})),
		validation.Field(&r.Date, validation.NilOrNotEmpty, validation.By(func(any) error {
			if r.Date == nil {
				return nil
			}
			_, err := tags.ParseDate(*r.Date, false, time.Now())
			return err
		})),
	)
}

// Change converts the validated request into a service edit.
func (r *UpdateActionItemRequest) Change() minutes.ActionItemChange {
	c := minutes.ActionItemChange{Who: r.Who, Description: r.Description}
	if r.State != nil {
		st, _ := models.LookupState(*r.State)
		c.State = &st
	}
	if r.Date != nil {
		d, _ := tags.ParseDate(*r.Date, false, time.Now())
		c.Date = &d
	}
	return c
}

// MergeActionItemsRequest is the request body for merging two action items.
type MergeActionItemsRequest struct {
	SeriesID int64 `json:"series_id" example:"1"`
	Keep     int   `json:"keep" example:"3"`
	Drop     int   `json:"drop" example:"7"`
}

// Validate validates the request.
func (r *MergeActionItemsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SeriesID, validation.Required),
		validation.Field(&r.Keep, validation.Required, validation.Min(1)),
		validation.Field(&r.Drop, validation.Required, validation.Min(1), validation.NotIn(r.Keep).Error("must differ from keep")),
	)
}
