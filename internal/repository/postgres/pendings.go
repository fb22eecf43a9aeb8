package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

// PendingRegistrationRepository implements port.PendingRegistrationRepository using PostgreSQL.
type PendingRegistrationRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPendingRegistrationRepository wires a PostgreSQL-backed pending registration repository.
func NewPendingRegistrationRepository(pool *pgxpool.Pool) *PendingRegistrationRepository {
	return &PendingRegistrationRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *PendingRegistrationRepository) WithTx(tx pgx.Tx) *PendingRegistrationRepository {
	if tx == nil {
		return r
	}
	return &PendingRegistrationRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new pending registration row.
func (r *PendingRegistrationRepository) Create(ctx context.Context, pending domain.PendingRegistration) error {
	var displayName any
	if pending.DisplayName != nil && *pending.DisplayName != "" {
		displayName = *pending.DisplayName
	}

	query := r.builder.Insert("swapsavvy.pending_registrations").
		Columns(
			"id",
			"assigned_id",
			"username",
			"email",
			"password_hash",
			"display_name",
			"gender",
			"avatar",
			"created_at",
			"expires_at",
			"status",
		).
		Values(
			pending.ID,
			pending.AssignedID,
			pending.Username,
			pending.Email,
			pending.PasswordHash,
			displayName,
			pending.Gender,
			pending.Avatar,
			pending.CreatedAt,
			pending.ExpiresAt,
			pending.Status,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert pending registration sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert pending registration: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("insert pending registration: %w", err)
	}

	return nil
}

// GetByID retrieves a pending registration regardless of status.
func (r *PendingRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.PendingRegistration, error) {
	stmt, args, err := r.selectPending().
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending registration sql: %w", err)
	}

	return r.scanPending(r.exec.QueryRow(ctx, stmt, args...))
}

// FindLiveByEmail retrieves a pending registration by email that is still awaiting verification at the reference time.
func (r *PendingRegistrationRepository) FindLiveByEmail(ctx context.Context, email string, at time.Time) (*domain.PendingRegistration, error) {
	stmt, args, err := r.selectPending().
		Where(squirrel.Eq{"email": email}).
		Where(squirrel.Eq{"status": domain.PendingStatusPending}).
		Where(squirrel.GtOrEq{"expires_at": at}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select live pending by email sql: %w", err)
	}

	return r.scanPending(r.exec.QueryRow(ctx, stmt, args...))
}

// FindLiveByUsername retrieves a pending registration by username that is still awaiting verification at the reference time.
func (r *PendingRegistrationRepository) FindLiveByUsername(ctx context.Context, username string, at time.Time) (*domain.PendingRegistration, error) {
	stmt, args, err := r.selectPending().
		Where(squirrel.Eq{"username": username}).
		Where(squirrel.Eq{"status": domain.PendingStatusPending}).
		Where(squirrel.GtOrEq{"expires_at": at}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select live pending by username sql: %w", err)
	}

	return r.scanPending(r.exec.QueryRow(ctx, stmt, args...))
}

// AssignedIDExists reports whether any pending registration holds the assigned id.
func (r *PendingRegistrationRepository) AssignedIDExists(ctx context.Context, assignedID string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("swapsavvy.pending_registrations").
		Where(squirrel.Eq{"assigned_id": assignedID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build pending assigned id exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("scan pending assigned id exists: %w", err)
	}

	return true, nil
}

// MarkExpired flips a pending registration into the expired status.
func (r *PendingRegistrationRepository) MarkExpired(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("swapsavvy.pending_registrations").
		Set("status", domain.PendingStatusExpired).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark pending expired sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark pending expired: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a pending registration row.
func (r *PendingRegistrationRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("swapsavvy.pending_registrations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete pending registration sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteExpired removes every pending registration whose window elapsed before the reference time.
func (r *PendingRegistrationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("swapsavvy.pending_registrations").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired pendings sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired pendings: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *PendingRegistrationRepository) selectPending() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"assigned_id",
		"username",
		"email",
		"password_hash",
		"display_name",
		"gender",
		"avatar",
		"created_at",
		"expires_at",
		"status",
	).From("swapsavvy.pending_registrations")
}

func (r *PendingRegistrationRepository) scanPending(row pgx.Row) (*domain.PendingRegistration, error) {
	var (
		pending     domain.PendingRegistration
		displayName sql.NullString
	)

	if err := row.Scan(
		&pending.ID,
		&pending.AssignedID,
		&pending.Username,
		&pending.Email,
		&pending.PasswordHash,
		&displayName,
		&pending.Gender,
		&pending.Avatar,
		&pending.CreatedAt,
		&pending.ExpiresAt,
		&pending.Status,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending registration: %w", err)
	}

	if displayName.Valid {
		val := displayName.String
		pending.DisplayName = &val
	}

	return &pending, nil
}

var _ port.PendingRegistrationRepository = (*PendingRegistrationRepository)(nil)
