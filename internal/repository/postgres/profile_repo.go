package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetsync/internal/domain"
)

const profileColumns = `id, username, avatar_url, plan, subscription_status, current_period_end, stripe_customer_id, renewal_type, created_at, updated_at`

type profileRepository struct {
	DB *sql.DB
}

// NewProfileRepository returns a domain.ProfileRepository implemented with Postgres.
func NewProfileRepository(db *sql.DB) domain.ProfileRepository {
	return &profileRepository{DB: db}
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	var username, avatarURL, plan, customerID, renewal sql.NullString
	var periodEnd sql.NullTime
	if err := row.Scan(&p.ID, &username, &avatarURL, &plan, &p.SubscriptionStatus, &periodEnd, &customerID, &renewal, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if username.Valid {
		p.Username = &username.String
	}
	if avatarURL.Valid {
		p.AvatarURL = &avatarURL.String
	}
	if plan.Valid {
		pl := domain.Plan(plan.String)
		p.Plan = &pl
	}
	if periodEnd.Valid {
		p.CurrentPeriodEnd = &periodEnd.Time
	}
	if customerID.Valid {
		p.StripeCustomerID = &customerID.String
	}
	if renewal.Valid {
		p.RenewalType = &renewal.String
	}
	return p, nil
}

func (r *profileRepository) Ensure(ctx context.Context, id string) (*domain.Profile, error) {
	insert := `
		INSERT INTO profiles (id, plan, subscription_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.DB.ExecContext(ctx, insert, id, string(domain.PlanBasic), domain.SubscriptionInactive); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) UpdatePublic(ctx context.Context, id string, username, avatarURL *string) (*domain.Profile, error) {
	query := `
		UPDATE profiles
		SET username = COALESCE($1, username), avatar_url = COALESCE($2, avatar_url), updated_at = NOW()
		WHERE id = $3
		RETURNING ` + profileColumns
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, username, avatarURL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) SetCustomerID(ctx context.Context, id, customerID string) error {
	query := `UPDATE profiles SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.DB.ExecContext(ctx, query, customerID, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepository) UpdateBillingByCustomerID(ctx context.Context, customerID string, upd domain.BillingUpdate) error {
	setClauses := []string{"updated_at = NOW()", "subscription_status = $1", "plan = $2"}
	var plan any
	if upd.Plan != nil {
		plan = string(*upd.Plan)
	}
	args := []any{upd.Status, plan}
	n := 3
	switch {
	case upd.ClearPeriodEnd:
		setClauses = append(setClauses, "current_period_end = NULL")
	case upd.CurrentPeriodEnd != nil:
		setClauses = append(setClauses, fmt.Sprintf("current_period_end = $%d", n))
		args = append(args, *upd.CurrentPeriodEnd)
		n++
	}
	if upd.RenewalType != nil {
		setClauses = append(setClauses, fmt.Sprintf("renewal_type = $%d", n))
		args = append(args, *upd.RenewalType)
		n++
	}
	args = append(args, customerID)
	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE stripe_customer_id = $%d`, strings.Join(setClauses, ", "), n)
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
