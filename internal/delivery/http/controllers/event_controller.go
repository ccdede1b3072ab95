package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"eventmanager/internal/delivery/http/helpers"
	"eventmanager/internal/delivery/http/middleware"
	"eventmanager/internal/domain"
	"eventmanager/internal/validation"
)

// EventListResponse is the data of a paginated GET /events.
type EventListResponse struct {
	Events     []*domain.Event  `json:"events"`
	Pagination *domain.PageInfo `json:"pagination"`
}

// ConflictsResponse is the data of GET /events/{eventID}/conflicts.
type ConflictsResponse struct {
	HasConflicts bool `json:"has_conflicts"`
}

// EventSuccessResponse is the success envelope carrying a single event.
type EventSuccessResponse struct {
	Success bool          `json:"success"`
	Data    *domain.Event `json:"data"`
	Message string        `json:"message,omitempty"`
}

// EventListSuccessResponse is the success envelope for GET /events.
type EventListSuccessResponse struct {
	Success bool              `json:"success"`
	Data    EventListResponse `json:"data"`
}

// ConflictsSuccessResponse is the success envelope for GET /events/{eventID}/conflicts.
type ConflictsSuccessResponse struct {
	Success bool              `json:"success"`
	Data    ConflictsResponse `json:"data"`
	Message string            `json:"message"`
}

type EventController struct {
	Logger    *slog.Logger
	Service   domain.EventService
	Validator *validation.Validator
	Catalog   *validation.Catalog
}

func NewEventController(logger *slog.Logger, svc domain.EventService, v *validation.Validator, catalog *validation.Catalog) *EventController {
	return &EventController{
		Logger:    logger,
		Service:   svc,
		Validator: v,
		Catalog:   catalog,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Lists events ordered by start time with location, organizer and speakers. Without limit the result is paginated; with limit a plain array of at most limit events is returned. is_registered is included for callers holding the audience role.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive match on title or description"
// @Param type query string false "Event type" Enums(conference, workshop, webinar, meetup)
// @Param location_id query string false "Location ID"
// @Param date_from query string false "Earliest start date (inclusive)"
// @Param date_to query string false "Latest start date (inclusive)"
// @Param upcoming query bool false "Only events starting in the future"
// @Param today query bool false "Only events starting today"
// @Param user_events query bool false "Only events organized by the caller"
// @Param exclude query string false "Event ID to leave out"
// @Param limit query int false "Return at most limit events without pagination"
// @Param page query int false "Page number (default 1)"
// @Param per_page query int false "Page size (default 15, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse "data contains events and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (invalid token)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := helpers.ParseEventFilter(r)
	page, err := c.Service.ListEvents(r.Context(), middleware.PrincipalFromContext(r.Context()), filter, helpers.ParsePagination(r))
	if err != nil {
		c.fail(w, r, err, validation.MsgEventsListFailed)
		return
	}
	if page.Pagination == nil {
		helpers.WriteJSONSuccess(w, http.StatusOK, page.Events)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, EventListResponse{Events: page.Events, Pagination: page.Pagination})
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event organized by the caller and attaches the given speakers. Requires the organizer role.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body validation.CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_error"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.manager(w, r)
	if !ok {
		return
	}
	var req validation.CreateEventRequest
	if err := c.Validator.DecodeAndValidate(r.Body, &req); err != nil {
		c.fail(w, r, err, validation.MsgEventCreateFailed)
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), caller, req.ToInput())
	if err != nil {
		c.fail(w, r, err, validation.MsgEventCreateFailed)
		return
	}
	helpers.WriteJSONMessage(w, http.StatusCreated, event, c.message(r, validation.MsgEventCreated))
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with location, organizer, speakers and registration count.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (invalid token)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), middleware.PrincipalFromContext(r.Context()), eventID)
	if err != nil {
		c.fail(w, r, err, validation.MsgEventFetchFailed)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Updates the given fields; omitted or null fields are unchanged. speaker_ids replaces the whole speaker set. Requires the organizer role.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body validation.UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_error"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [put]
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.manager(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	var req validation.UpdateEventRequest
	if err := c.Validator.DecodeAndValidate(r.Body, &req); err != nil {
		c.fail(w, r, err, validation.MsgEventUpdateFailed)
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), caller, eventID, req.ToPatch())
	if err != nil {
		c.fail(w, r, err, validation.MsgEventUpdateFailed)
		return
	}
	helpers.WriteJSONMessage(w, http.StatusOK, event, c.message(r, validation.MsgEventUpdated))
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event with its registrations and speaker links. Registrants are notified by email. Requires the organizer role.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "message confirms the deletion"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.manager(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), caller, eventID); err != nil {
		c.fail(w, r, err, validation.MsgEventDeleteFailed)
		return
	}
	helpers.WriteJSONMessage(w, http.StatusOK, nil, c.message(r, validation.MsgEventDeleted))
}

// CheckConflicts godoc
// @Summary Check location conflicts
// @Description Reports whether another event at the same location overlaps this event's time window. Requires the organizer role.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ConflictsSuccessResponse "data.has_conflicts"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/conflicts [get]
func (c *EventController) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.manager(w, r)
	if !ok {
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	conflicts, err := c.Service.CheckConflicts(r.Context(), caller, eventID)
	if err != nil {
		c.fail(w, r, err, validation.MsgEventFetchFailed)
		return
	}
	helpers.WriteJSONMessage(w, http.StatusOK, ConflictsResponse{HasConflicts: conflicts}, c.message(r, validation.MsgConflictsChecked))
}

// manager returns the caller when it may manage events. Callers without the
// capability are turned away before the body is read.
func (c *EventController) manager(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	caller := middleware.PrincipalFromContext(r.Context())
	if caller == nil {
		c.fail(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}
	if !caller.Can(domain.CapabilityManageEvents) {
		c.fail(w, r, domain.ErrForbidden, "")
		return nil, false
	}
	return caller, true
}

// eventID returns the path event ID. IDs that are not UUIDs cannot name an event.
func (c *EventController) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("eventID")
	if uuid.Validate(id) != nil {
		c.fail(w, r, domain.ErrNotFound, "")
		return "", false
	}
	return id, true
}

func (c *EventController) message(r *http.Request, key string) string {
	return c.Catalog.Message(helpers.LocaleFromContext(r.Context()), key)
}

// fail writes the response for err. Internal errors are logged and answered with the
// localized failureKey message; their text never reaches the client.
func (c *EventController) fail(w http.ResponseWriter, r *http.Request, err error, failureKey string) {
	locale := helpers.LocaleFromContext(r.Context())
	if errors.Is(err, validation.ErrMalformedBody) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, c.Catalog.Message(locale, validation.MsgBadRequest))
		return
	}
	kind := domain.KindOf(err)
	status, code := helpers.StatusFor(kind)
	var key string
	switch kind {
	case domain.KindValidation:
		helpers.WriteValidationError(w, c.Catalog.Message(locale, validation.MsgValidationFailed), helpers.FieldErrors(c.Catalog, locale, err))
		return
	case domain.KindNotFound:
		key = validation.MsgEventNotFound
	case domain.KindConflict:
		key = validation.MsgEventConflict
	case domain.KindForbidden:
		key = validation.MsgForbidden
	case domain.KindUnauthorized:
		key = validation.MsgUnauthorized
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		key = failureKey
		if key == "" {
			key = validation.MsgInternal
		}
	}
	helpers.WriteJSONError(w, status, code, c.Catalog.Message(locale, key))
}
