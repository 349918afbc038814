package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"
)

var (
	// ErrFileNotFound is returned when no live file row matches the given ID.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidState is returned when a conditional state transition matched
	// no row, meaning the file has already left the expected state. The
	// worker relies on this to skip redelivered jobs.
	ErrInvalidState = errors.New("file not in expected state")
)

const fileColumns = `id, user_id, name, file_type, state, issue_count,
	original_file_size_bytes, processed_file_size_bytes, cost_in_credits,
	deleted_at, created_at, updated_at`

// FileRepository is the authoritative record of uploaded files and their
// lifecycle state. State changes are conditional on the current state so
// illegal or duplicate transitions surface as ErrInvalidState instead of
// silently overwriting newer state.
type FileRepository interface {
	CreateFile(ctx context.Context, f *model.File) error
	GetFileByID(ctx context.Context, id string) (*model.File, error)
	ListFilesByUser(ctx context.Context, userID string) ([]model.File, error)
	TransitionState(ctx context.Context, id string, from, to model.FileState) error
	TransitionStateTx(ctx context.Context, tx *sql.Tx, id string, from, to model.FileState) error
	FinalizeProcessing(ctx context.Context, id string, issueCount int, originalSize, processedSize int64, cost int) error
	MarkProcessingFailed(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id, userID string) error
}

type fileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) CreateFile(ctx context.Context, f *model.File) error {
	query := `INSERT INTO files (id, user_id, name, file_type, state)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, f.ID, f.UserID, f.Name, f.FileType, f.State).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

func (r *fileRepo) GetFileByID(ctx context.Context, id string) (*model.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND deleted_at IS NULL`
	row := r.db.QueryRowContext(ctx, query, id)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func (r *fileRepo) ListFilesByUser(ctx context.Context, userID string) ([]model.File, error) {
	query := `SELECT ` + fileColumns + `
              FROM files
              WHERE user_id = $1 AND deleted_at IS NULL
              ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return files, nil
}

// TransitionState moves a file from one lifecycle state to another. The
// update only matches when the file is still in the expected state.
func (r *fileRepo) TransitionState(ctx context.Context, id string, from, to model.FileState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET state = $3, updated_at = now()
         WHERE id = $1 AND state = $2 AND deleted_at IS NULL`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("transition state: %w", err)
	}
	return checkTransition(res)
}

// TransitionStateTx is TransitionState inside a caller-owned transaction,
// used when the state flip must commit atomically with a queue send.
func (r *fileRepo) TransitionStateTx(ctx context.Context, tx *sql.Tx, id string, from, to model.FileState) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE files SET state = $3, updated_at = now()
         WHERE id = $1 AND state = $2 AND deleted_at IS NULL`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("transition state: %w", err)
	}
	return checkTransition(res)
}

// FinalizeProcessing records the outcome of a successful processing cycle in
// one statement: state, issue count, sizes and cost all land together or not
// at all. Conditional on the file still being in processing.
func (r *fileRepo) FinalizeProcessing(ctx context.Context, id string, issueCount int, originalSize, processedSize int64, cost int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files
         SET state = $2, issue_count = $3, original_file_size_bytes = $4,
             processed_file_size_bytes = $5, cost_in_credits = $6, updated_at = now()
         WHERE id = $1 AND state = $7 AND deleted_at IS NULL`,
		id, model.FileStateProcessed, issueCount, originalSize, processedSize, cost,
		model.FileStateProcessing,
	)
	if err != nil {
		return fmt.Errorf("finalize processing: %w", err)
	}
	return checkTransition(res)
}

func (r *fileRepo) MarkProcessingFailed(ctx context.Context, id string) error {
	return r.TransitionState(ctx, id, model.FileStateProcessing, model.FileStateProcessingFailed)
}

func (r *fileRepo) SoftDelete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET deleted_at = now(), updated_at = now()
         WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

func checkTransition(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.File, error) {
	var f model.File
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.Name,
		&f.FileType,
		&f.State,
		&f.IssueCount,
		&f.OriginalFileSizeBytes,
		&f.ProcessedFileSizeBytes,
		&f.CostInCredits,
		&f.DeletedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
