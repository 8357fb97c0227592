package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"meetsync/internal/delivery/http/helpers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventID      = "0b9f1c52-7a43-4c1e-9d7b-3f0e2c6a1d11"
	invitationID = "5c3e8f0a-2b6d-4e9a-8c1f-7d4b2a9e6f22"
)

var (
	errBoom = errors.New("boom")
	owner   = domain.Identity{UserID: "user-owner", Email: "owner@example.com"}
	guest   = domain.Identity{UserID: "user-guest", Email: "guest@example.com"}
)

func withCaller(r *http.Request, id domain.Identity) *http.Request {
	return r.WithContext(middleware.SetIdentity(r.Context(), id))
}

// decodeEnvelope decodes an APIResponse and re-decodes its data into dest when dest is non-nil.
func decodeEnvelope(t *testing.T, body io.Reader, dest any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&raw))
	if dest != nil && len(raw.Data) > 0 && string(raw.Data) != "null" {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return helpers.APIResponse{Data: dest, Error: raw.Error}
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err         error
	event       *domain.Event
	events      []*domain.Event
	total       int
	lastCreated *domain.Event
	lastFilter  domain.EventFilter
	lastParams  domain.PaginationParams
	lastEventID string
	lastOwnerID string
	lastBanner  *string
}

func (f *fakeEventService) CreateEvent(_ context.Context, event *domain.Event) error {
	f.lastCreated = event
	if f.err != nil {
		return f.err
	}
	event.ID = eventID
	return nil
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastEventID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) DiscoverEvents(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter, f.lastParams = filter, params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.events, f.total, nil
}

func (f *fakeEventService) ListMyEvents(_ context.Context, ownerID string) ([]*domain.Event, error) {
	f.lastOwnerID = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeEventService) UpdateBanner(_ context.Context, id, ownerID string, bannerURL *string) (*domain.Event, error) {
	f.lastEventID, f.lastOwnerID, f.lastBanner = id, ownerID, bannerURL
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

// fakeInvitationService implements domain.InvitationService for handler tests.
type fakeInvitationService struct {
	mu          sync.Mutex
	err         error
	listErr     error
	result      *domain.InviteResult
	invitation  *domain.Invitation
	list        []*domain.Invitation
	listCalls   int
	lastEventID string
	lastCaller  domain.Identity
	lastOwnerID string
	lastEmail   string
	lastMustPay bool
	lastStatus  domain.InvitationStatus
	lastInvID   string
	subscribers map[string][]func()
	subscribed  chan struct{}
}

func (f *fakeInvitationService) Invite(_ context.Context, eventID, ownerID, email string, mustPay bool) (*domain.InviteResult, error) {
	f.lastEventID, f.lastOwnerID, f.lastEmail, f.lastMustPay = eventID, ownerID, email, mustPay
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeInvitationService) Join(_ context.Context, eventID string, caller domain.Identity) (*domain.Invitation, error) {
	f.lastEventID, f.lastCaller = eventID, caller
	if f.err != nil {
		return nil, f.err
	}
	return f.invitation, nil
}

func (f *fakeInvitationService) Respond(_ context.Context, invID string, caller domain.Identity, status domain.InvitationStatus) (*domain.Invitation, error) {
	f.lastInvID, f.lastCaller, f.lastStatus = invID, caller, status
	if f.err != nil {
		return nil, f.err
	}
	return f.invitation, nil
}

func (f *fakeInvitationService) Cancel(_ context.Context, eventID, invID, ownerID string) error {
	f.lastEventID, f.lastInvID, f.lastOwnerID = eventID, invID, ownerID
	return f.err
}

func (f *fakeInvitationService) Leave(_ context.Context, eventID string, caller domain.Identity) error {
	f.lastEventID, f.lastCaller = eventID, caller
	return f.err
}

func (f *fakeInvitationService) List(_ context.Context, eventID string, caller domain.Identity) ([]*domain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastEventID, f.lastCaller = eventID, caller
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*domain.Invitation, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeInvitationService) setList(list []*domain.Invitation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
}

func (f *fakeInvitationService) Subscribe(eventID string, fn func()) func() {
	f.mu.Lock()
	if f.subscribers == nil {
		f.subscribers = make(map[string][]func())
	}
	f.subscribers[eventID] = append(f.subscribers[eventID], fn)
	f.mu.Unlock()
	if f.subscribed != nil {
		f.subscribed <- struct{}{}
	}
	return func() {}
}

func (f *fakeInvitationService) publish(eventID string) {
	f.mu.Lock()
	fns := append([]func(){}, f.subscribers[eventID]...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// fakeProfileService implements domain.ProfileService.
type fakeProfileService struct {
	err           error
	profile       *domain.Profile
	lastUserID    string
	lastUsername  *string
	lastAvatarURL *string
}

func (f *fakeProfileService) EnsureProfile(_ context.Context, userID string) (*domain.Profile, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeProfileService) UpdatePublicProfile(_ context.Context, userID string, username, avatarURL *string) (*domain.Profile, error) {
	f.lastUserID, f.lastUsername, f.lastAvatarURL = userID, username, avatarURL
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// fakeTrophyService implements domain.TrophyService.
type fakeTrophyService struct {
	err        error
	stats      *domain.TrophyStats
	lastUserID string
}

func (f *fakeTrophyService) Stats(_ context.Context, userID string) (*domain.TrophyStats, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// fakeEmailService implements domain.EmailService.
type fakeEmailService struct {
	err         error
	invitations []*domain.EventInvitationEmailData
	removals    []*domain.InviteRemovedEmailData
}

func (f *fakeEmailService) SendEventInvitation(_ context.Context, data *domain.EventInvitationEmailData) error {
	f.invitations = append(f.invitations, data)
	return f.err
}

func (f *fakeEmailService) SendInviteRemoved(_ context.Context, data *domain.InviteRemovedEmailData) error {
	f.removals = append(f.removals, data)
	return f.err
}

// fakeBillingService implements domain.BillingService.
type fakeBillingService struct {
	err           error
	url           string
	lastPayload   []byte
	lastSignature string
	lastCaller    domain.Identity
	lastPlan      domain.Plan
	lastUserID    string
	webhookCalls  int
}

func (f *fakeBillingService) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	f.webhookCalls++
	f.lastPayload, f.lastSignature = payload, signature
	return f.err
}

func (f *fakeBillingService) CreateCheckoutSession(_ context.Context, caller domain.Identity, plan domain.Plan) (string, error) {
	f.lastCaller, f.lastPlan = caller, plan
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeBillingService) CreatePortalSession(_ context.Context, userID string) (string, error) {
	f.lastUserID = userID
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}
