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

// VerificationCodeRepository implements port.VerificationCodeRepository using PostgreSQL.
type VerificationCodeRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewVerificationCodeRepository wires a PostgreSQL-backed verification code repository.
func NewVerificationCodeRepository(pool *pgxpool.Pool) *VerificationCodeRepository {
	return &VerificationCodeRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *VerificationCodeRepository) WithTx(tx pgx.Tx) *VerificationCodeRepository {
	if tx == nil {
		return r
	}
	return &VerificationCodeRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new verification code row.
func (r *VerificationCodeRepository) Create(ctx context.Context, code domain.VerificationCode) error {
	var pendingID any
	if code.PendingID != nil && *code.PendingID != "" {
		pendingID = *code.PendingID
	}

	var accountID any
	if code.AccountID != nil && *code.AccountID != "" {
		accountID = *code.AccountID
	}

	query := r.builder.Insert("swapsavvy.verification_codes").
		Columns(
			"id",
			"pending_id",
			"account_id",
			"code",
			"attempts",
			"resend_count",
			"last_sent_at",
			"created_at",
			"expires_at",
		).
		Values(
			code.ID,
			pendingID,
			accountID,
			code.Code,
			code.Attempts,
			code.ResendCount,
			code.LastSentAt,
			code.CreatedAt,
			code.ExpiresAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert verification code sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}

	return nil
}

// LatestForPending retrieves the most recently created code owned by a pending registration.
func (r *VerificationCodeRepository) LatestForPending(ctx context.Context, pendingID string) (*domain.VerificationCode, error) {
	stmt, args, err := r.selectCode().
		Where(squirrel.Eq{"pending_id": pendingID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select code for pending sql: %w", err)
	}

	return r.scanCode(r.exec.QueryRow(ctx, stmt, args...))
}

// LatestForAccount retrieves the most recently created code owned by an account.
func (r *VerificationCodeRepository) LatestForAccount(ctx context.Context, accountID string) (*domain.VerificationCode, error) {
	stmt, args, err := r.selectCode().
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select code for account sql: %w", err)
	}

	return r.scanCode(r.exec.QueryRow(ctx, stmt, args...))
}

// DeleteForPending removes every code owned by a pending registration.
func (r *VerificationCodeRepository) DeleteForPending(ctx context.Context, pendingID string) (int64, error) {
	stmt, args, err := r.builder.Delete("swapsavvy.verification_codes").
		Where(squirrel.Eq{"pending_id": pendingID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete codes for pending sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete codes for pending: %w", err)
	}

	return ct.RowsAffected(), nil
}

// DeleteForAccount removes every code owned by an account.
func (r *VerificationCodeRepository) DeleteForAccount(ctx context.Context, accountID string) (int64, error) {
	stmt, args, err := r.builder.Delete("swapsavvy.verification_codes").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete codes for account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete codes for account: %w", err)
	}

	return ct.RowsAffected(), nil
}

// IncrementAttempts bumps the failed-attempt counter and returns the new value.
func (r *VerificationCodeRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	stmt, args, err := r.builder.Update("swapsavvy.verification_codes").
		Set("attempts", squirrel.Expr("attempts + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment attempts sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	return attempts, nil
}

// DeleteExpired removes every code whose validity window elapsed before the reference time.
func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("swapsavvy.verification_codes").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired codes sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}

	return ct.RowsAffected(), nil
}

func (r *VerificationCodeRepository) selectCode() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"pending_id",
		"account_id",
		"code",
		"attempts",
		"resend_count",
		"last_sent_at",
		"created_at",
		"expires_at",
	).From("swapsavvy.verification_codes")
}

func (r *VerificationCodeRepository) scanCode(row pgx.Row) (*domain.VerificationCode, error) {
	var (
		code      domain.VerificationCode
		pendingID sql.NullString
		accountID sql.NullString
	)

	if err := row.Scan(
		&code.ID,
		&pendingID,
		&accountID,
		&code.Code,
		&code.Attempts,
		&code.ResendCount,
		&code.LastSentAt,
		&code.CreatedAt,
		&code.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification code: %w", err)
	}

	if pendingID.Valid {
		val := pendingID.String
		code.PendingID = &val
	}
	if accountID.Valid {
		val := accountID.String
		code.AccountID = &val
	}

	return &code, nil
}

var _ port.VerificationCodeRepository = (*VerificationCodeRepository)(nil)
