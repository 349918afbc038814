// Package worker consumes file jobs from the queue and drives the processing
// pipeline: download the original, invoke the external fixer, upload the
// result and record the outcome on the file row.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"app/internal/model"
	"app/internal/queue"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var annotationPattern = regexp.MustCompile(`recovered (\d+) annotations`)

// ObjectStore is the slice of the storage client the worker needs.
type ObjectStore interface {
	DownloadToFile(ctx context.Context, key, path string) (int64, error)
	UploadFromFile(ctx context.Context, key, path string) error
}

// HandlerFunc processes one decoded job payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Processor holds the dependencies of all job handlers.
type Processor struct {
	files  repository.FileRepository
	users  repository.UserRepository
	store  ObjectStore
	runner Runner
	tmpDir string
	logger zerolog.Logger
}

// NewProcessor wires a job processor. tmpDir is where working copies of the
// files live; pass os.TempDir() outside tests.
func NewProcessor(
	files repository.FileRepository,
	users repository.UserRepository,
	store ObjectStore,
	runner Runner,
	tmpDir string,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		files:  files,
		users:  users,
		store:  store,
		runner: runner,
		tmpDir: tmpDir,
		logger: logger.With().Str("component", "Processor").Logger(),
	}
}

// Handlers returns the dispatch table mapping job kinds to handlers.
func (p *Processor) Handlers() map[queue.Kind]HandlerFunc {
	return map[queue.Kind]HandlerFunc{
		queue.KindProcessFile:      p.handleProcessFile,
		queue.KindSendWelcomeEmail: p.handleSendWelcomeEmail,
	}
}

func (p *Processor) handleProcessFile(ctx context.Context, payload json.RawMessage) error {
	var job queue.ProcessFilePayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.ProcessFile(ctx, job.FileID)
}

// ProcessFile runs one repair cycle for the given file. Failures of the
// fixer itself freeze the file in processing_failed; infrastructure errors
// before or after leave the row untouched so an operator can re-trigger.
// A file that already left processing (redelivered job) is skipped.
func (p *Processor) ProcessFile(ctx context.Context, fileID string) error {
	file, err := p.files.GetFileByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("load file %s: %w", fileID, err)
	}
	if file.State != model.FileStateProcessing {
		p.logger.Warn().
			Str("file_id", fileID).
			Str("state", string(file.State)).
			Msg("File no longer in processing, skipping job")
		return nil
	}

	originalPath := filepath.Join(p.tmpDir, fileID+"-original")
	processedPath := filepath.Join(p.tmpDir, fileID+"-processed")
	defer func() {
		os.Remove(originalPath)
		os.Remove(processedPath)
	}()

	originalSize, err := p.store.DownloadToFile(ctx, file.StorageKey(), originalPath)
	if err != nil {
		return fmt.Errorf("download original %s: %w", fileID, err)
	}
	p.logger.Info().
		Str("file_id", fileID).
		Int64("size_bytes", originalSize).
		Msg("Downloaded original file")

	issueCount, fixErr := p.runFixer(ctx, originalPath, processedPath)
	if fixErr != nil {
		p.logger.Error().Err(fixErr).Str("file_id", fileID).Msg("Fixer failed, marking file as failed")
		if err := p.files.MarkProcessingFailed(ctx, fileID); err != nil {
			if errors.Is(err, repository.ErrInvalidState) {
				return nil
			}
			return fmt.Errorf("mark failed %s: %w", fileID, err)
		}
		return nil
	}

	stat, err := os.Stat(processedPath)
	if err != nil {
		return fmt.Errorf("stat processed output: %w", err)
	}
	processedSize := stat.Size()

	if err := p.store.UploadFromFile(ctx, file.ProcessedStorageKey(), processedPath); err != nil {
		return fmt.Errorf("upload processed %s: %w", fileID, err)
	}

	cost := CostInCredits(originalSize)
	if err := p.files.FinalizeProcessing(ctx, fileID, issueCount, originalSize, processedSize, cost); err != nil {
		if errors.Is(err, repository.ErrInvalidState) {
			p.logger.Warn().Str("file_id", fileID).Msg("File left processing mid-job, result discarded")
			return nil
		}
		return fmt.Errorf("finalize %s: %w", fileID, err)
	}

	p.logger.Info().
		Str("file_id", fileID).
		Int("issue_count", issueCount).
		Int("cost_in_credits", cost).
		Msg("File processed")
	return nil
}

// runFixer invokes the external binary and parses its report. Any stderr
// output or an unrecognizable stdout counts as failure.
func (p *Processor) runFixer(ctx context.Context, inputPath, outputPath string) (int, error) {
	stdout, stderr, err := p.runner.Fix(ctx, inputPath, outputPath)
	if err != nil {
		return 0, fmt.Errorf("run fixer: %w", err)
	}
	if strings.TrimSpace(stderr) != "" {
		return 0, fmt.Errorf("fixer wrote to stderr: %s", strings.TrimSpace(stderr))
	}
	match := annotationPattern.FindStringSubmatch(stdout)
	if match == nil {
		return 0, fmt.Errorf("unexpected fixer output: %q", strings.TrimSpace(stdout))
	}
	issueCount, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("parse annotation count: %w", err)
	}
	return issueCount, nil
}

func (p *Processor) handleSendWelcomeEmail(ctx context.Context, payload json.RawMessage) error {
	var job queue.SendWelcomeEmailPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	user, err := p.users.GetUserByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", job.UserID, err)
	}
	// Email delivery is handled by an external provider; here we only record
	// that the greeting was triggered.
	p.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Welcome email job handled")
	return nil
}
