package postgres

import (
	"context"
	"database/sql"
	"errors"

	"meetsync/internal/domain"
)

// invitationSelect joins the invitee profile so that live profile fields win over the
// values denormalized at invite time.
const invitationSelect = `
	SELECT i.id, i.event_id, i.email, i.user_id, i.must_pay, i.status,
		COALESCE(p.username, i.display_name), COALESCE(p.avatar_url, i.avatar_url), i.created_at
	FROM invite i
	LEFT JOIN profiles p ON p.id = i.user_id
`

const invitationReturning = `RETURNING id, event_id, email, user_id, must_pay, status, display_name, avatar_url, created_at`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{
		DB: db,
	}
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var userID, displayName, avatarURL sql.NullString
	if err := row.Scan(&inv.ID, &inv.EventID, &inv.Email, &userID, &inv.MustPay, &inv.Status, &displayName, &avatarURL, &inv.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		inv.UserID = &userID.String
	}
	if displayName.Valid {
		inv.DisplayName = &displayName.String
	}
	if avatarURL.Valid {
		inv.AvatarURL = &avatarURL.String
	}
	return inv, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invite (event_id, email, user_id, must_pay, status, display_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		inv.EventID, inv.Email, inv.UserID, inv.MustPay, string(inv.Status), inv.DisplayName, inv.AvatarURL, inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyInvited
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, invitationSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Invitation, error) {
	rows, err := r.DB.QueryContext(ctx, invitationSelect+` WHERE i.event_id = $1 ORDER BY i.seq ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invs := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *invitationRepository) FindForInvitee(ctx context.Context, eventID, userID, email string) (*domain.Invitation, error) {
	query := invitationSelect + ` WHERE i.event_id = $1 AND (i.user_id = $2 OR i.email = $3) ORDER BY i.seq ASC LIMIT 1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, eventID, nullIfEmpty(userID), email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) UpdateResponse(ctx context.Context, id string, from, to domain.InvitationStatus, userID string, displayName, avatarURL *string) (*domain.Invitation, error) {
	query := `
		UPDATE invite
		SET status = $1,
			user_id = COALESCE(user_id, $2),
			display_name = COALESCE($3, display_name),
			avatar_url = COALESCE($4, avatar_url)
		WHERE id = $5 AND status = $6
	` + invitationReturning
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, string(to), nullIfEmpty(userID), displayName, avatarURL, id, string(from)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) DeleteByID(ctx context.Context, eventID, id string) (*domain.Invitation, error) {
	query := `DELETE FROM invite WHERE id = $1 AND event_id = $2 ` + invitationReturning
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) DeleteForInvitee(ctx context.Context, eventID, userID, email string) (int64, error) {
	query := `DELETE FROM invite WHERE event_id = $1 AND (user_id = $2 OR email = $3)`
	result, err := r.DB.ExecContext(ctx, query, eventID, nullIfEmpty(userID), email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *invitationRepository) CountAcceptedByUser(ctx context.Context, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM invite WHERE user_id = $1 AND status = $2`
	if err := r.DB.QueryRowContext(ctx, query, userID, string(domain.StatusAccepted)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
