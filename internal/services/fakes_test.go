package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"meetsync/internal/domain"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, Create returns this error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		byID:   make(map[string]*domain.Event),
		nextID: 1,
	}
}

func (f *fakeEventRepo) add(e *domain.Event) *domain.Event {
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", f.nextID)
		f.nextID++
	}
	f.byID[e.ID] = e
	return e
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.add(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListPublic(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*domain.Event
	for _, e := range f.byID {
		if e.IsPublic {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, len(out), nil
}

func (f *fakeEventRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Event
	for _, e := range f.byID {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeEventRepo) UpdateBanner(ctx context.Context, id string, bannerURL *string) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.BannerURL = bannerURL
	return e, nil
}

// fakeInvitationRepo keeps invitations in insertion order and enforces one row per (event, email).
type fakeInvitationRepo struct {
	rows      []*domain.Invitation
	nextID    int
	listCalls int
	findErr   error
	createErr error
	deleteErr error
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{nextID: 1}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, r := range f.rows {
		if r.EventID == inv.EventID && r.Email == inv.Email {
			return domain.ErrAlreadyInvited
		}
	}
	inv.ID = fmt.Sprintf("inv-%d", f.nextID)
	f.nextID++
	f.rows = append(f.rows, inv)
	return nil
}

func (f *fakeInvitationRepo) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Invitation, error) {
	f.listCalls++
	out := make([]*domain.Invitation, 0)
	for _, r := range f.rows {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInvitationRepo) FindForInvitee(ctx context.Context, eventID, userID, email string) (*domain.Invitation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, r := range f.rows {
		if r.EventID == eventID && r.MatchesInvitee(userID, email) {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) UpdateResponse(ctx context.Context, id string, from, to domain.InvitationStatus, userID string, displayName, avatarURL *string) (*domain.Invitation, error) {
	for _, r := range f.rows {
		if r.ID != id || r.Status != from {
			continue
		}
		r.Status = to
		if r.UserID == nil && userID != "" {
			r.UserID = &userID
		}
		if displayName != nil {
			r.DisplayName = displayName
		}
		if avatarURL != nil {
			r.AvatarURL = avatarURL
		}
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) DeleteByID(ctx context.Context, eventID, id string) (*domain.Invitation, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	for i, r := range f.rows {
		if r.ID == id && r.EventID == eventID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) DeleteForInvitee(ctx context.Context, eventID, userID, email string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		byUser := userID != "" && r.UserID != nil && *r.UserID == userID
		if r.EventID == eventID && (byUser || r.Email == email) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeInvitationRepo) CountAcceptedByUser(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, r := range f.rows {
		if r.UserID != nil && *r.UserID == userID && r.Status == domain.StatusAccepted {
			n++
		}
	}
	return n, nil
}

// fakeProfileRepo is an in-memory ProfileRepository for tests.
type fakeProfileRepo struct {
	byID       map[string]*domain.Profile
	updateErr  error
	billingLog []string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byID: make(map[string]*domain.Profile)}
}

func (f *fakeProfileRepo) Ensure(ctx context.Context, id string) (*domain.Profile, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	basic := domain.PlanBasic
	p := &domain.Profile{ID: id, Plan: &basic, SubscriptionStatus: domain.SubscriptionInactive, CreatedAt: time.Now()}
	f.byID[id] = p
	return p, nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProfileRepo) UpdatePublic(ctx context.Context, id string, username, avatarURL *string) (*domain.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if username != nil {
		p.Username = username
	}
	if avatarURL != nil {
		p.AvatarURL = avatarURL
	}
	return p, nil
}

func (f *fakeProfileRepo) SetCustomerID(ctx context.Context, id, customerID string) error {
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.StripeCustomerID = &customerID
	return nil
}

func (f *fakeProfileRepo) UpdateBillingByCustomerID(ctx context.Context, customerID string, upd domain.BillingUpdate) error {
	f.billingLog = append(f.billingLog, customerID)
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, p := range f.byID {
		if p.StripeCustomerID == nil || *p.StripeCustomerID != customerID {
			continue
		}
		p.SubscriptionStatus = upd.Status
		p.Plan = upd.Plan
		switch {
		case upd.ClearPeriodEnd:
			p.CurrentPeriodEnd = nil
		case upd.CurrentPeriodEnd != nil:
			p.CurrentPeriodEnd = upd.CurrentPeriodEnd
		}
		if upd.RenewalType != nil {
			p.RenewalType = upd.RenewalType
		}
		return nil
	}
	return domain.ErrNotFound
}

// fakeEmailService records every attempt and fails when err is set. A non-nil
// release blocks removal emails until it is closed.
type fakeEmailService struct {
	invitations   []*domain.EventInvitationEmailData
	removals      []*domain.InviteRemovedEmailData
	removalCtxErr error
	release       chan struct{}
	err           error
}

func (f *fakeEmailService) SendEventInvitation(ctx context.Context, data *domain.EventInvitationEmailData) error {
	f.invitations = append(f.invitations, data)
	return f.err
}

func (f *fakeEmailService) SendInviteRemoved(ctx context.Context, data *domain.InviteRemovedEmailData) error {
	if f.release != nil {
		<-f.release
	}
	f.removals = append(f.removals, data)
	f.removalCtxErr = ctx.Err()
	return f.err
}

// fakeFeed counts publications per event.
type fakeFeed struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeFeed) Subscribe(eventID string, fn func()) func() { return func() {} }

func (f *fakeFeed) Publish(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, eventID)
}

// fakeMailer implements domain.Mailer.
type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg domain.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg.To+"|"+msg.Subject)
	return nil
}

// fakeRenderer renders "<template>:<data>" as the subject.
type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(name string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	return name, "<p>" + name + "</p>", name, nil
}

// fakeVerifier returns event for the signature "valid" and ErrInvalidSignature otherwise.
type fakeVerifier struct {
	event *domain.WebhookEvent
	err   error
}

func (f *fakeVerifier) Verify(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if signature != "valid" {
		return nil, fmt.Errorf("%w: bad header", domain.ErrInvalidSignature)
	}
	return f.event, f.err
}

// fakeBillingProvider implements domain.BillingProvider.
type fakeBillingProvider struct {
	subscriptions   map[string]*domain.SubscriptionSnapshot
	createdFor      []string
	checkoutReqs    []domain.CheckoutRequest
	portalCustomers []string
	err             error
}

func (f *fakeBillingProvider) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.createdFor = append(f.createdFor, userID)
	return "cus_" + userID, nil
}

func (f *fakeBillingProvider) GetSubscription(ctx context.Context, id string) (*domain.SubscriptionSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

func (f *fakeBillingProvider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.checkoutReqs = append(f.checkoutReqs, req)
	return "https://checkout.example/" + req.PriceID, nil
}

func (f *fakeBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.portalCustomers = append(f.portalCustomers, customerID)
	return "https://portal.example/" + customerID, nil
}
