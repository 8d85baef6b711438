package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// idParam parses the {id} URL parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return 0, false
	}
	return id, true
}

// seriesParam parses the required ?series= query parameter.
func seriesParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("series"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'series' is required"))
		return 0, false
	}
	return id, true
}

// ListSeries handles GET /api/series.
//
//	@Summary	List all series
//	@Tags		series
//	@Produce	json
//	@Success	200	{array}	models.Series
//	@Security	BearerAuth
//	@Router		/series [get]
func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.svc.Series(r.Context())
	if err != nil {
		writeError(w, "list series", err)
		return
	}
	if series == nil {
		series = []models.Series{}
	}
	writeJSON(w, http.StatusOK, series)
}

// CreateSeries handles POST /api/series.
//
//	@Summary	Create a series with its decision categories and meta fields
//	@Tags		series
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateSeriesRequest	true	"Series to create"
//	@Success	201		{object}	models.Series
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/series [post]
func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var req CreateSeriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := &models.Series{Name: req.Name, ShortName: req.ShortName}
	fields := make([]models.MetaField, len(req.MetaFields))
	for i, f := range req.MetaFields {
		fields[i] = models.MetaField{Key: f.Key, Name: f.Name, Default: f.Default, Internal: f.Internal}
	}
	if err := h.svc.CreateSeries(r.Context(), s, req.Categories, fields); err != nil {
		writeError(w, "create series", err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// ListMeetings handles GET /api/meetings?series=.
//
//	@Summary	List the meetings of a series, newest first
//	@Tags		meetings
//	@Produce	json
//	@Param		series	query	int	true	"Series ID"
//	@Success	200		{array}	models.Meeting
//	@Security	BearerAuth
//	@Router		/meetings [get]
func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := seriesParam(w, r)
	if !ok {
		return
	}
	meetings, err := h.svc.Meetings(r.Context(), seriesID)
	if err != nil {
		writeError(w, "list meetings", err)
		return
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	writeJSON(w, http.StatusOK, meetings)
}

// CreateMeeting handles POST /api/meetings.
//
//	@Summary	Create a meeting
//	@Tags		meetings
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateMeetingRequest	true	"Meeting to create"
//	@Success	201		{object}	models.Meeting
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/meetings [post]
func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, _ := req.When()
	m := &models.Meeting{SeriesID: req.SeriesID, Date: date, Source: req.Source}
	if err := h.svc.CreateMeeting(r.Context(), m); err != nil {
		writeError(w, "create meeting", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMeeting handles GET /api/meetings/{id}.
//
//	@Summary	Get a meeting with source, agenda, action items and decisions
//	@Tags		meetings
//	@Produce	json
//	@Param		id	path		int	true	"Meeting ID"
//	@Success	200	{object}	minutes.MeetingDetail
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/meetings/{id} [get]
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Meeting(r.Context(), id)
	if err != nil {
		writeError(w, "get meeting", err)
		return
	}
	w.Header().Set("ETag", `"`+m.Checksum+`"`)
	writeJSON(w, http.StatusOK, m)
}

// UpdateSource handles PUT /api/meetings/{id}/source.
//
//	@Summary	Replace the protocol source and parse it
//	@Tags		meetings
//	@Accept		json
//	@Produce	json
//	@Param		id			path		int					true	"Meeting ID"
//	@Param		If-Match	header		string				false	"Checksum of the current source"
//	@Param		body		body		UpdateSourceRequest	true	"New source"
//	@Success	200			{object}	minutes.ParseResult
//	@Failure	409			{object}	errResponse
//	@Failure	422			{object}	diagResponse
//	@Security	BearerAuth
//	@Router		/meetings/{id}/source [put]
func (h *Handler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req UpdateSourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	res, err := h.svc.UpdateSource(r.Context(), id, req.Source, ifMatch)
	if err != nil {
		writeError(w, "update source", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ParseMeeting handles POST /api/meetings/{id}/parse.
//
//	@Summary	Parse the stored source of a meeting
//	@Tags		meetings
//	@Produce	json
//	@Param		id	path		int	true	"Meeting ID"
//	@Success	200	{object}	minutes.ParseResult
//	@Failure	422	{object}	diagResponse
//	@Security	BearerAuth
//	@Router		/meetings/{id}/parse [post]
func (h *Handler) ParseMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Parse(r.Context(), id)
	if err != nil {
		writeError(w, "parse meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RenderMeeting handles GET /api/meetings/{id}/render/{format}?internal=.
//
//	@Summary	Get the stored render of the last successful parse
//	@Tags		meetings
//	@Produce	json
//	@Param		id			path		int		true	"Meeting ID"
//	@Param		format		path		string	true	"Output format"	Enums(typeset, hypertext, wiki, dokuwiki, plaintext)
//	@Param		internal	query		bool	false	"Internal audience"
//	@Success	200			{object}	RenderResponse
//	@Failure	404			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/meetings/{id}/render/{format} [get]
func (h *Handler) RenderMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	f, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	v := render.Public
	if internal, _ := strconv.ParseBool(r.URL.Query().Get("internal")); internal {
		v = render.Internal
	}
	a, err := h.svc.Artifact(r.Context(), id, f, v)
	if err != nil {
		writeError(w, "render meeting", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Diagnostics handles GET /api/meetings/{id}/diagnostics.
//
//	@Summary	List the recorded diagnostics of a meeting, newest first
//	@Tags		meetings
//	@Produce	json
//	@Param		id	path	int	true	"Meeting ID"
//	@Success	200	{array}	store.StoredDiagnostic
//	@Security	BearerAuth
//	@Router		/meetings/{id}/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ds, err := h.svc.Diagnostics(r.Context(), id)
	if err != nil {
		writeError(w, "diagnostics", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// ListActionItems handles GET /api/todos?series=&open=.
//
//	@Summary	List the action items of a series
//	@Tags		todos
//	@Produce	json
//	@Param		series	query		int		true	"Series ID"
//	@Param		open	query		bool	false	"Only items not yet finished"
//	@Success	200		{object}	ActionItemListResponse
//	@Security	BearerAuth
//	@Router		/todos [get]
func (h *Handler) ListActionItems(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := seriesParam(w, r)
	if !ok {
		return
	}
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open"))
	items, err := h.svc.ActionItems(r.Context(), seriesID, openOnly)
	if err != nil {
		writeError(w, "list action items", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionItemListResponse{ActionItems: items})
}

// UpdateActionItem handles PATCH /api/todos/{number}?series=.
//
//	@Summary	Edit an action item
//	@Tags		todos
//	@Accept		json
//	@Produce	json
//	@Param		number	path		int						true	"Action item number"
//	@Param		series	query		int						true	"Series ID"
//	@Param		body	body		UpdateActionItemRequest	true	"Fields to change"
//	@Success	200		{object}	models.ActionItem
//	@Failure	400		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/todos/{number} [patch]
func (h *Handler) UpdateActionItem(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := seriesParam(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid number"))
		return
	}
	var req UpdateActionItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	it, err := h.svc.UpdateActionItem(r.Context(), seriesID, number, req.Change())
	if err != nil {
		writeError(w, "update action item", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// MergeActionItems handles POST /api/todos/merge.
//
//	@Summary	Merge one action item into another
//	@Tags		todos
//	@Accept		json
//	@Produce	json
//	@Param		body	body		MergeActionItemsRequest	true	"Items to merge"
//	@Success	200		{object}	models.ActionItem
//	@Failure	400		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/todos/merge [post]
func (h *Handler) MergeActionItems(w http.ResponseWriter, r *http.Request) {
	var req MergeActionItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	it, err := h.svc.MergeActionItems(r.Context(), req.SeriesID, req.Keep, req.Drop)
	if err != nil {
		writeError(w, "merge action items", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// ListDecisions handles GET /api/decisions?series=&q=.
//
//	@Summary	List or search the decisions of a series
//	@Tags		decisions
//	@Produce	json
//	@Param		series	query		int		true	"Series ID"
//	@Param		q		query		string	false	"Full-text query"
//	@Param		limit	query		int		false	"Max search results"
//	@Success	200		{object}	DecisionListResponse
//	@Security	BearerAuth
//	@Router		/decisions [get]
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := seriesParam(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		results, err := h.svc.SearchDecisions(r.Context(), seriesID, q, limit)
		if err != nil {
			writeError(w, "search decisions", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}
	decisions, err := h.svc.Decisions(r.Context(), seriesID)
	if err != nil {
		writeError(w, "list decisions", err)
		return
	}
	writeJSON(w, http.StatusOK, DecisionListResponse{Decisions: decisions})
}
