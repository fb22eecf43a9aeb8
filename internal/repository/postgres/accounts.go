package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var displayName any
	if account.DisplayName != nil && *account.DisplayName != "" {
		displayName = *account.DisplayName
	}

	query := r.builder.Insert("swapsavvy.accounts").
		Columns(
			"id",
			"assigned_id",
			"username",
			"email",
			"password_hash",
			"display_name",
			"gender",
			"avatar",
			"is_verified",
			"created_at",
		).
		Values(
			account.ID,
			account.AssignedID,
			account.Username,
			account.Email,
			account.PasswordHash,
			displayName,
			account.Gender,
			account.Avatar,
			account.IsVerified,
			account.CreatedAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert account: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.selectAccount().
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// FindByUsernameOrEmail retrieves an account matching the identifier on either column.
func (r *AccountRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.selectAccount().
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Eq{"email": identifier},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by identifier sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// ExistsByUsername reports whether an account holds the exact username.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"username": username})
}

// ExistsByEmail reports whether an account holds the exact email.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"email": email})
}

// AssignedIDExists reports whether any account holds the assigned id.
func (r *AccountRepository) AssignedIDExists(ctx context.Context, assignedID string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"assigned_id": assignedID})
}

// SetVerified marks an account as email-verified.
func (r *AccountRepository) SetVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("swapsavvy.accounts").
		Set("is_verified", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set account verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set account verified: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// PromotePending converts a pending registration into a verified account in a
// single transaction: insert the account, delete the registration's codes,
// delete the registration itself. Any failure rolls the whole promotion back.
func (r *AccountRepository) PromotePending(ctx context.Context, pendingID string, account domain.Account) error {
	if r.pool == nil {
		return fmt.Errorf("promote pending: pool is required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin promote tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.WithTx(tx).Create(ctx, account); err != nil {
		return err
	}

	delCodes, codeArgs, err := r.builder.Delete("swapsavvy.verification_codes").
		Where(squirrel.Eq{"pending_id": pendingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete promoted codes sql: %w", err)
	}
	if _, err := tx.Exec(ctx, delCodes, codeArgs...); err != nil {
		return fmt.Errorf("delete promoted codes: %w", err)
	}

	delPending, pendingArgs, err := r.builder.Delete("swapsavvy.pending_registrations").
		Where(squirrel.Eq{"id": pendingID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete promoted pending sql: %w", err)
	}
	ct, err := tx.Exec(ctx, delPending, pendingArgs...)
	if err != nil {
		return fmt.Errorf("delete promoted pending: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Another worker promoted or reaped the registration first.
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit promote tx: %w", err)
	}

	return nil
}

func (r *AccountRepository) exists(ctx context.Context, cond squirrel.Eq) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("swapsavvy.accounts").
		Where(cond).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build account exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("scan account exists: %w", err)
	}

	return true, nil
}

func (r *AccountRepository) selectAccount() squirrel.SelectBuilder {
	return r.builder.Select(
		"id",
		"assigned_id",
		"username",
		"email",
		"password_hash",
		"display_name",
		"gender",
		"avatar",
		"is_verified",
		"created_at",
	).From("swapsavvy.accounts")
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account     domain.Account
		displayName sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.AssignedID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&displayName,
		&account.Gender,
		&account.Avatar,
		&account.IsVerified,
		&account.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if displayName.Valid {
		val := displayName.String
		account.DisplayName = &val
	}

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
