package domain

import "errors"

// Sentinel errors shared by services and repositories. Wrap them with %w and match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyInvited    = errors.New("invitee already invited to this event")
	ErrInvalidTransition = errors.New("invalid invitation status transition")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMalformedEvent    = errors.New("malformed webhook event")
	ErrNoCustomer        = errors.New("profile has no billing customer")
	ErrUnknownPlan       = errors.New("unknown plan")
)
