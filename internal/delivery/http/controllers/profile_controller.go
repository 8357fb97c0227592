package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// UpdateProfileRequest is the request body for PATCH /me/profile. Only display fields are writable.
type UpdateProfileRequest struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// Validate implements Validator.
func (u UpdateProfileRequest) Validate() []string {
	var errs []string
	if u.Username != nil && len(strings.TrimSpace(*u.Username)) > 50 {
		errs = append(errs, "username must be at most 50 characters")
	}
	if u.AvatarURL != nil && *u.AvatarURL != "" && !helpers.IsURL(*u.AvatarURL) {
		errs = append(errs, "avatar_url must be an http(s) URL")
	}
	return errs
}

// ProfileSuccessResponse is the success response envelope for profile endpoints (200).
type ProfileSuccessResponse struct {
	Data  *domain.Profile   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// TrophiesSuccessResponse is the success response envelope for GET /me/trophies (200).
type TrophiesSuccessResponse struct {
	Data  *domain.TrophyStats `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type ProfileController struct {
	Logger   *slog.Logger
	Profiles domain.ProfileService
	Trophies domain.TrophyService
}

func NewProfileController(logger *slog.Logger, profiles domain.ProfileService, trophies domain.TrophyService) *ProfileController {
	return &ProfileController{
		Logger:   logger,
		Profiles: profiles,
		Trophies: trophies,
	}
}

// GetMyProfile godoc
// @Summary Get the caller's profile
// @Description Returns the caller's profile, creating a basic one on first access.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProfileSuccessResponse "data contains the profile"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/profile [get]
func (c *ProfileController) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	profile, err := c.Profiles.EnsureProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// UpdateMyProfile godoc
// @Summary Update the caller's display fields
// @Description Updates username and avatar_url. Omitted fields are unchanged. Billing fields cannot be set here.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Display fields"
// @Success 200 {object} controllers.ProfileSuccessResponse "data contains the updated profile"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/profile [patch]
func (c *ProfileController) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	profile, err := c.Profiles.UpdatePublicProfile(r.Context(), userID, req.Username, req.AvatarURL)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// GetMyTrophies godoc
// @Summary Get the caller's trophies
// @Description Counters over owned events and accepted invitations, with progress for every trophy.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.TrophiesSuccessResponse "data contains stats and trophies"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/trophies [get]
func (c *ProfileController) GetMyTrophies(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	stats, err := c.Trophies.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}
