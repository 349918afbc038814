package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUserNotFound is returned when no user row matches the given ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user with the same ID or email is
	// already provisioned. Callers racing on first login re-fetch instead.
	ErrUserExists = errors.New("user already exists")
	// ErrInsufficientBalance is returned when a debit would take the credit
	// balance below zero. The balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UserRepository is the authoritative store for users and their credit
// ledger. Every balance change goes through AdjustBalance so the ledger and
// the balance column can never diverge.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	AdjustBalance(ctx context.Context, userID string, amount int, reason, idempotencyKey string) error
	AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason, idempotencyKey string) error
	ListTransactions(ctx context.Context, userID string) ([]model.AccountBalanceTransaction, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (id, email, name)
              VALUES ($1, $2, $3)
              RETURNING id, email, name, credit_balance, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.Name).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreditBalance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `SELECT id, email, name, credit_balance, created_at, updated_at
              FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreditBalance, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// AdjustBalance applies a signed credit adjustment and appends the matching
// ledger row in one transaction. If a ledger row with the same idempotency
// key already exists the adjustment has been applied before and the call is a
// no-op. A debit that would take the balance negative rolls the whole
// transaction back with ErrInsufficientBalance.
func (r *userRepo) AdjustBalance(ctx context.Context, userID string, amount int, reason, idempotencyKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.AdjustBalanceTx(ctx, tx, userID, amount, reason, idempotencyKey); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AdjustBalanceTx is AdjustBalance inside a caller-owned transaction, used
// when the adjustment must commit atomically with other writes (a purchase
// debits the ledger and flips the file state in one unit).
func (r *userRepo) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason, idempotencyKey string) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO account_balance_transactions (id, user_id, amount, reason, idempotency_key)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (idempotency_key) DO NOTHING`,
		uuid.NewString(), userID, amount, reason, idempotencyKey,
	)
	if err != nil {
		// The user_id foreign key fires before the row lock below ever runs.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert ledger row: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger rows affected: %w", err)
	}
	if inserted == 0 {
		// Already applied. Nothing to do.
		return nil
	}

	// Lock the user row so concurrent adjustments serialize on it.
	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT credit_balance FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user row: %w", err)
	}

	newBalance := balance + amount
	if newBalance < 0 {
		return ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET credit_balance = $2, updated_at = now() WHERE id = $1`,
		userID, newBalance,
	); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	return nil
}

func (r *userRepo) ListTransactions(ctx context.Context, userID string) ([]model.AccountBalanceTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount, reason, idempotency_key, created_at
         FROM account_balance_transactions
         WHERE user_id = $1
         ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.AccountBalanceTransaction
	for rows.Next() {
		var t model.AccountBalanceTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Reason, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return txs, nil
}
