package service

import (
	"context"
	"database/sql"
	"fmt"

	"app/internal/model"
	"app/internal/queue"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileService owns the file lifecycle: creation with an upload capability,
// kicking off processing, purchase, download and deletion.
type FileService interface {
	CreateFile(ctx context.Context, userID, name, fileType string) (*model.File, string, error)
	ListFiles(ctx context.Context, userID string) ([]model.File, error)
	GetFile(ctx context.Context, fileID, userID string) (*model.File, error)
	StartProcessing(ctx context.Context, fileID, userID string) error
	Purchase(ctx context.Context, fileID, userID string) error
	Download(ctx context.Context, fileID, userID string) (string, error)
	Delete(ctx context.Context, fileID, userID string) error
}

type fileService struct {
	db        *sql.DB
	files     repository.FileRepository
	users     repository.UserRepository
	store     ObjectStore
	queue     JobQueue
	queueName string
	logger    zerolog.Logger
}

// NewFileService wires the file lifecycle service. The *sql.DB handle is used
// for the multi-write operations that must commit as one unit.
func NewFileService(
	db *sql.DB,
	files repository.FileRepository,
	users repository.UserRepository,
	store ObjectStore,
	queueClient JobQueue,
	queueName string,
	logger zerolog.Logger,
) FileService {
	return &fileService{
		db:        db,
		files:     files,
		users:     users,
		store:     store,
		queue:     queueClient,
		queueName: queueName,
		logger:    logger.With().Str("service", "FileService").Logger(),
	}
}

// CreateFile records a new file in state uploading and returns a presigned
// PUT URL. The client uploads the bytes directly to storage under the file ID.
func (s *fileService) CreateFile(ctx context.Context, userID, name, fileType string) (*model.File, string, error) {
	file := &model.File{
		ID:       uuid.NewString(),
		UserID:   userID,
		Name:     name,
		FileType: fileType,
		State:    model.FileStateUploading,
	}
	if err := s.files.CreateFile(ctx, file); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create file record")
		return nil, "", fmt.Errorf("create file record: %w", err)
	}

	uploadURL, err := s.store.PresignUpload(ctx, file.StorageKey(), fileType)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", file.ID).Msg("Failed to presign upload URL")
		return nil, "", fmt.Errorf("presign upload: %w", err)
	}
	return file, uploadURL, nil
}

func (s *fileService) ListFiles(ctx context.Context, userID string) ([]model.File, error) {
	files, err := s.files.ListFilesByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list files")
		return nil, err
	}
	return files, nil
}

// GetFile loads a file and verifies ownership. Files owned by other users
// are reported as not found.
func (s *fileService) GetFile(ctx context.Context, fileID, userID string) (*model.File, error) {
	file, err := s.files.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, repository.ErrFileNotFound
	}
	return file, nil
}

// StartProcessing flips the file to processing and enqueues the repair job.
// Both writes share one transaction: either the job exists and the state says
// processing, or neither happened. A file in processing_failed re-enters
// processing the same way, so a failed run is retried with a fresh request.
func (s *fileService) StartProcessing(ctx context.Context, fileID, userID string) error {
	file, err := s.GetFile(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if !file.State.CanTransition(model.FileStateProcessing) {
		return repository.ErrInvalidState
	}

	payload, err := queue.Encode(queue.KindProcessFile, queue.ProcessFilePayload{FileID: fileID})
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.files.TransitionStateTx(ctx, tx, fileID, file.State, model.FileStateProcessing); err != nil {
		return err
	}
	if err := s.queue.SendTx(ctx, tx, s.queueName, payload); err != nil {
		s.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to enqueue processing job")
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Info().Str("file_id", fileID).Msg("Processing job enqueued")
	return nil
}

// Purchase debits the file's cost from the owner's balance and marks the
// file purchased, atomically. A file with zero or unknown cost transitions
// without a debit. The ledger idempotency key is derived from the file ID so
// a retried purchase can never debit twice.
func (s *fileService) Purchase(ctx context.Context, fileID, userID string) error {
	file, err := s.GetFile(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if file.State != model.FileStateProcessed {
		return repository.ErrInvalidState
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if file.CostInCredits != nil && *file.CostInCredits > 0 {
		cost := *file.CostInCredits
		reason := fmt.Sprintf("Purchased file %s", fileID)
		if err := s.users.AdjustBalanceTx(ctx, tx, userID, -cost, reason, "purchase:"+fileID); err != nil {
			return err
		}
	}
	if err := s.files.TransitionStateTx(ctx, tx, fileID, model.FileStateProcessed, model.FileStatePurchased); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Info().Str("file_id", fileID).Str("user_id", userID).Msg("File purchased")
	return nil
}

// Download issues a time-limited GET URL for the processed file. Only
// purchased files can be downloaded.
func (s *fileService) Download(ctx context.Context, fileID, userID string) (string, error) {
	file, err := s.GetFile(ctx, fileID, userID)
	if err != nil {
		return "", err
	}
	if file.State != model.FileStatePurchased {
		return "", repository.ErrInvalidState
	}
	url, err := s.store.PresignDownload(ctx, file.ProcessedStorageKey(), file.Name)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", fileID).Msg("Failed to presign download URL")
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// Delete soft-deletes the file. The row stays for bookkeeping but disappears
// from listings; allowed from any state.
func (s *fileService) Delete(ctx context.Context, fileID, userID string) error {
	return s.files.SoftDelete(ctx, fileID, userID)
}
