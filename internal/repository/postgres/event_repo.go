package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetsync/internal/domain"
)

const eventColumns = `id, name, date, country, city, address, price, is_public, auto_reminder, banner_url, owner_id, created_at`

// eventSortColumns whitelists ORDER BY targets for public discovery.
var eventSortColumns = map[string]string{
	domain.EventSortDate:      "date",
	domain.EventSortPrice:     "price",
	domain.EventSortName:      "name",
	domain.EventSortCreatedAt: "created_at",
}

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var priceNull sql.NullFloat64
	var bannerNull sql.NullString
	if err := row.Scan(
		&e.ID, &e.Name, &e.Date, &e.Country, &e.City, &e.Address,
		&priceNull, &e.IsPublic, &e.AutoReminder, &bannerNull, &e.OwnerID, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if priceNull.Valid {
		e.Price = &priceNull.Float64
	}
	if bannerNull.Valid {
		e.BannerURL = &bannerNull.String
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO event (name, date, country, city, address, price, is_public, auto_reminder, banner_url, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Name, e.Date, e.Country, e.City, e.Address, e.Price, e.IsPublic, e.AutoReminder, e.BannerURL, e.OwnerID, e.CreatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *eventRepository) ListPublic(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := []string{"is_public = TRUE"}
	args := []any{}
	n := 1
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, n))
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		n++
	}
	if c := strings.TrimSpace(filter.Country); c != "" {
		where = append(where, fmt.Sprintf("LOWER(country) = LOWER($%d)", n))
		args = append(args, c)
		n++
	}
	if c := strings.TrimSpace(filter.City); c != "" {
		where = append(where, fmt.Sprintf("LOWER(city) = LOWER($%d)", n))
		args = append(args, c)
		n++
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := eventSortColumns[filter.Sort]
	if !ok {
		col = "date"
	}
	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM event
		WHERE %s
		ORDER BY %s %s NULLS LAST, id
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereSQL, col, dir, n, n+1)
	args = append(args, params.Limit(), params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) UpdateBanner(ctx context.Context, id string, bannerURL *string) (*domain.Event, error) {
	query := `UPDATE event SET banner_url = $1 WHERE id = $2 RETURNING ` + eventColumns
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, bannerURL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
