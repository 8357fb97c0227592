package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
	"meetsync/internal/services"
)

// SendInvitationRequest is the body of POST /api/send-invitation.
type SendInvitationRequest struct {
	Email         string `json:"email"`
	EventName     string `json:"eventName"`
	EventDate     string `json:"eventDate"`
	EventLocation string `json:"eventLocation"`
	EventID       string `json:"eventId"`
}

// SendInviteRemovedRequest is the body of POST /api/send-invite-removed.
type SendInviteRemovedRequest struct {
	Email     string `json:"email"`
	EventName string `json:"eventName"`
	EventID   string `json:"eventId"`
}

// SuccessResponse is the {"success": true} body of the /api email endpoints.
type SuccessResponse struct {
	Success bool `json:"success"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Email   domain.EmailService
	Events  domain.EventService
	SiteURL string
}

func NewNotificationController(logger *slog.Logger, email domain.EmailService, events domain.EventService, siteURL string) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		Email:   email,
		Events:  events,
		SiteURL: siteURL,
	}
}

// SendInvitation godoc
// @Summary Send an event invitation email
// @Description When eventId is set the caller must own the event; the deep link and date come from it. eventDate may be RFC 3339 or preformatted text.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendInvitationRequest true "Invitation email"
// @Success 200 {object} controllers.SuccessResponse
// @Failure 400 {object} helpers.LegacyError
// @Failure 401 {object} helpers.LegacyError
// @Failure 403 {object} helpers.LegacyError
// @Failure 429 {object} helpers.LegacyError
// @Failure 500 {object} helpers.LegacyError
// @Router /api/send-invitation [post]
func (c *NotificationController) SendInvitation(w http.ResponseWriter, r *http.Request) {
	var req SendInvitationRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "email is required")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteLegacyError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data := &domain.EventInvitationEmailData{
		Email:         domain.NormalizeEmail(req.Email),
		EventName:     req.EventName,
		EventDate:     formatLegacyDate(req.EventDate),
		EventLocation: req.EventLocation,
	}
	if req.EventID != "" {
		event, ok := c.ownedEvent(w, r, req.EventID, callerID)
		if !ok {
			return
		}
		data.EventURL = services.EventURL(c.SiteURL, event.ID)
		if data.EventName == "" {
			data.EventName = event.Name
		}
		if data.EventDate == "" {
			data.EventDate = services.FormatEventDate(event.Date)
		}
		if data.EventLocation == "" {
			data.EventLocation = event.Location()
		}
	}

	if err := c.Email.SendEventInvitation(r.Context(), data); err != nil {
		c.Logger.ErrorContext(r.Context(), "send invitation email failed", "to", data.Email, "err", err)
		helpers.WriteLegacyError(w, http.StatusInternalServerError, "failed to send invitation email")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// SendInviteRemoved godoc
// @Summary Send an invitation cancellation email
// @Description When eventId is set the caller must own the event; a blank eventName is taken from it.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendInviteRemovedRequest true "Cancellation email"
// @Success 200 {object} controllers.SuccessResponse
// @Failure 400 {object} helpers.LegacyError
// @Failure 401 {object} helpers.LegacyError
// @Failure 403 {object} helpers.LegacyError
// @Failure 429 {object} helpers.LegacyError
// @Failure 500 {object} helpers.LegacyError
// @Router /api/send-invite-removed [post]
func (c *NotificationController) SendInviteRemoved(w http.ResponseWriter, r *http.Request) {
	var req SendInviteRemovedRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		helpers.WriteLegacyError(w, http.StatusBadRequest, "email is required")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteLegacyError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data := &domain.InviteRemovedEmailData{
		Email:     domain.NormalizeEmail(req.Email),
		EventName: req.EventName,
	}
	if req.EventID != "" {
		event, ok := c.ownedEvent(w, r, req.EventID, callerID)
		if !ok {
			return
		}
		if data.EventName == "" {
			data.EventName = event.Name
		}
	}
	if err := c.Email.SendInviteRemoved(r.Context(), data); err != nil {
		c.Logger.ErrorContext(r.Context(), "send invite removed email failed", "to", data.Email, "err", err)
		helpers.WriteLegacyError(w, http.StatusInternalServerError, "failed to send email")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ownedEvent loads eventID and writes a legacy error unless callerID owns it.
func (c *NotificationController) ownedEvent(w http.ResponseWriter, r *http.Request, eventID, callerID string) (*domain.Event, bool) {
	event, err := c.Events.GetEvent(r.Context(), eventID)
	if err != nil {
		writeLegacyServiceError(w, r, c.Logger, err)
		return nil, false
	}
	if event.OwnerID != callerID {
		helpers.WriteLegacyError(w, http.StatusForbidden, domain.ErrForbidden.Error())
		return nil, false
	}
	return event, true
}

// formatLegacyDate renders RFC 3339 dates in the email format and passes anything else through.
func formatLegacyDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return services.FormatEventDate(t)
	}
	return s
}
