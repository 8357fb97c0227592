package domain

import (
	"context"
	"strings"
	"time"
)

// Event is a bookable occasion owned by exactly one user.
// swagger:model Event
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	Address      string    `json:"address"`
	Price        *float64  `json:"price"`
	IsPublic     bool      `json:"is_public"`
	AutoReminder bool      `json:"auto_reminder"`
	BannerURL    *string   `json:"banner_url"`
	OwnerID      string    `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name string, date time.Time, country, city, address string, price *float64, isPublic, autoReminder bool, ownerID string, createdAt time.Time) *Event {
	return &Event{
		Name:         name,
		Date:         date,
		Country:      country,
		City:         city,
		Address:      address,
		Price:        price,
		IsPublic:     isPublic,
		AutoReminder: autoReminder,
		OwnerID:      ownerID,
		CreatedAt:    createdAt,
	}
}

// IsPaid reports whether attending the event costs money.
func (e *Event) IsPaid() bool {
	return e.Price != nil && *e.Price > 0
}

// Location joins the non-empty address parts, e.g. "12 Main St, Lyon, France".
func (e *Event) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Address, e.City, e.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Sort keys accepted by EventFilter.
const (
	EventSortDate      = "date"
	EventSortPrice     = "price"
	EventSortName      = "name"
	EventSortCreatedAt = "created_at"
)

// EventFilter narrows public event discovery.
type EventFilter struct {
	Search  string
	Country string
	City    string
	Sort    string
	Desc    bool
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListPublic(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	UpdateBanner(ctx context.Context, id string, bannerURL *string) (*Event, error)
}

// EventService defines event creation, discovery and owner-only mutations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	DiscoverEvents(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListMyEvents(ctx context.Context, ownerID string) ([]*Event, error)
	UpdateBanner(ctx context.Context, eventID, ownerID string, bannerURL *string) (*Event, error)
}
