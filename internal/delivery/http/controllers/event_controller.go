package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	Address      string    `json:"address"`
	Price        *float64  `json:"price"`
	IsPublic     bool      `json:"is_public"`
	AutoReminder bool      `json:"auto_reminder"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Date.IsZero() {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(c.Country) == "" {
		errs = append(errs, "country is required")
	}
	if strings.TrimSpace(c.City) == "" {
		errs = append(errs, "city is required")
	}
	if c.Price != nil && *c.Price < 0 {
		errs = append(errs, "price cannot be negative")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success response envelope for GET /me/events (200).
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DiscoverEventsResponse is the data payload for GET /events.
type DiscoverEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// DiscoverEventsSuccessResponse is the success response envelope for GET /events (200).
type DiscoverEventsSuccessResponse struct {
	Data  DiscoverEventsResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create an event. The authenticated user becomes the owner. A null or zero price makes the event free.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := domain.NewEvent(req.Name, req.Date, req.Country, req.City, req.Address, req.Price, req.IsPublic, req.AutoReminder, userID, time.Time{})
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// DiscoverEvents godoc
// @Summary Discover public events
// @Description Lists public events with optional search and filters. Sort is one of date, price, name, created_at.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive match on the event name"
// @Param country query string false "Exact country"
// @Param city query string false "Exact city"
// @Param sort query string false "date | price | name | created_at"
// @Param order query string false "asc | desc"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.DiscoverEventsSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) DiscoverEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Country: strings.TrimSpace(q.Get("country")),
		City:    strings.TrimSpace(q.Get("city")),
		Sort:    q.Get("sort"),
		Desc:    strings.EqualFold(q.Get("order"), "desc"),
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.DiscoverEvents(r.Context(), filter, params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, DiscoverEventsResponse{Items: events, Pagination: meta})
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListMyEvents godoc
// @Summary List events owned by the caller
// @Description Returns the caller's events, newest first.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventListSuccessResponse "data contains the events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/events [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// UpdateBannerRequest is the request body for PATCH /events/{eventID}/banner. A null or empty banner_url clears it.
type UpdateBannerRequest struct {
	BannerURL *string `json:"banner_url"`
}

// Validate implements Validator.
func (u UpdateBannerRequest) Validate() []string {
	if u.BannerURL != nil && strings.TrimSpace(*u.BannerURL) != "" && !helpers.IsURL(*u.BannerURL) {
		return []string{"banner_url must be an http(s) URL"}
	}
	return nil
}

// UpdateBanner godoc
// @Summary Set or clear the event banner
// @Description Only the event owner can change the banner.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateBannerRequest true "Banner URL (null clears)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/banner [patch]
func (c *EventController) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateBannerRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.UpdateBanner(r.Context(), eventID, ownerID, req.BannerURL)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// pathUUID reads a UUID path value, writing 400 when it is missing or malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.PathValue(name)
	if v == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing "+name)
		return "", false
	}
	if !helpers.IsUUID(v) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid "+name)
		return "", false
	}
	return v, true
}
