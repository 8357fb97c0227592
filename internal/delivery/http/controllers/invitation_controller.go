package controllers

import (
	"log/slog"
	"net/http"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// InviteRequest is the request body for POST /events/{eventID}/invitations.
type InviteRequest struct {
	Email   string `json:"email"`
	MustPay bool   `json:"must_pay"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (i InviteRequest) Validate() []string {
	var errs []string
	if !helpers.IsEmail(i.Email) {
		errs = append(errs, "email must be a valid address")
	}
	return errs
}

// RespondRequest is the request body for PATCH /invitations/{invitationID}.
type RespondRequest struct {
	Status domain.InvitationStatus `json:"status"`
}

// Validate implements Validator.
func (r RespondRequest) Validate() []string {
	if r.Status != domain.StatusAccepted && r.Status != domain.StatusRefused {
		return []string{"status must be accepted or refused"}
	}
	return nil
}

// InviteSuccessResponse is the success response envelope for POST /events/{eventID}/invitations (201).
type InviteSuccessResponse struct {
	Data  *domain.InviteResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// InvitationSuccessResponse is the success response envelope for endpoints returning one invitation.
type InvitationSuccessResponse struct {
	Data  *domain.Invitation `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// InvitationListSuccessResponse is the success response envelope for GET /events/{eventID}/invitations (200).
type InvitationListSuccessResponse struct {
	Data  []*domain.Invitation `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

// ListInvitations godoc
// @Summary List the invitations of an event
// @Description Visible to the owner, to invitees, and to everyone for public events. Ordered by creation.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.InvitationListSuccessResponse "data contains the invitations"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [get]
func (c *InvitationController) ListInvitations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	list, err := c.Service.List(r.Context(), eventID, caller)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	if list == nil {
		list = []*domain.Invitation{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// Invite godoc
// @Summary Invite someone to an event
// @Description Owner only. The invitation starts as waiting and an invitation email is sent. When the email fails the invitation is still created and data.email_warning is set.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body InviteRequest true "Invitee"
// @Success 201 {object} controllers.InviteSuccessResponse "data contains the invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already invited)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [post]
func (c *InvitationController) Invite(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req InviteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.Invite(r.Context(), eventID, ownerID, req.Email, req.MustPay)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, result)
}

// CancelInvitation godoc
// @Summary Cancel an invitation
// @Description Owner only. Removes the invitation and notifies the invitee by email; email failures do not fail the request.
// @Tags invitations
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param invitationID path string true "Invitation ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations/{invitationID} [delete]
func (c *InvitationController) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	invitationID, ok := pathUUID(w, r, "invitationID")
	if !ok {
		return
	}
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Cancel(r.Context(), eventID, invitationID, ownerID); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinEvent godoc
// @Summary Join a public event
// @Description Creates an accepted invitation for the caller. must_pay is set when the event has a price.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.InvitationSuccessResponse "data contains the invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (owner cannot join)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (private event)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already invited)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/join [post]
func (c *InvitationController) JoinEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	inv, err := c.Service.Join(r.Context(), eventID, caller)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// LeaveEvent godoc
// @Summary Leave an event
// @Description Removes the caller's invitation, matched by user id or email. The owner cannot leave.
// @Tags invitations
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/leave [post]
func (c *InvitationController) LeaveEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathUUID(w, r, "eventID")
	if !ok {
		return
	}
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Leave(r.Context(), eventID, caller); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RespondToInvitation godoc
// @Summary Accept or refuse an invitation
// @Description Invitee only. Allowed once, from waiting to accepted or refused.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Param body body RespondRequest true "New status"
// @Success 200 {object} controllers.InvitationSuccessResponse "data contains the updated invitation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the invitee)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already answered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID} [patch]
func (c *InvitationController) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathUUID(w, r, "invitationID")
	if !ok {
		return
	}
	var req RespondRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	inv, err := c.Service.Respond(r.Context(), invitationID, caller, req.Status)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}
