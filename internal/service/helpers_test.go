package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"app/internal/model"
	"app/internal/repository"
)

// The fakes below keep their state outside the transaction, so the services'
// BeginTx/Commit calls only need a driver that hands out no-op transactions.

type noopDriver struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (noopConn) Close() error                        { return nil }
func (noopConn) Begin() (driver.Tx, error)           { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

var registerNoopDriver sync.Once

// txDB returns a *sql.DB whose transactions succeed without touching a real
// database.
func txDB(t *testing.T) *sql.DB {
	t.Helper()
	registerNoopDriver.Do(func() { sql.Register("nooptx", noopDriver{}) })
	db, err := sql.Open("nooptx", "")
	if err != nil {
		t.Fatalf("open noop db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ledgerRecorder fakes the user repository with an in-memory balance and
// idempotency-key set, mirroring the real ledger semantics closely enough to
// exercise the services' adjustment logic.
type ledgerRecorder struct {
	users       map[string]*model.User
	appliedKeys map[string]bool
	adjustments []ledgerAdjustment

	createErr error
	adjustErr error

	// getMisses makes the next N lookups miss, for provisioning-race tests.
	getMisses int
}

type ledgerAdjustment struct {
	userID string
	amount int
	reason string
	key    string
}

func newLedgerRecorder() *ledgerRecorder {
	return &ledgerRecorder{
		users:       make(map[string]*model.User),
		appliedKeys: make(map[string]bool),
	}
}

func (r *ledgerRecorder) CreateUser(ctx context.Context, u *model.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[u.ID]; ok {
		return repository.ErrUserExists
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *ledgerRecorder) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if r.getMisses > 0 {
		r.getMisses--
		return nil, repository.ErrUserNotFound
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *ledgerRecorder) AdjustBalance(ctx context.Context, userID string, amount int, reason, idempotencyKey string) error {
	return r.AdjustBalanceTx(ctx, nil, userID, amount, reason, idempotencyKey)
}

func (r *ledgerRecorder) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason, idempotencyKey string) error {
	if r.adjustErr != nil {
		return r.adjustErr
	}
	if r.appliedKeys[idempotencyKey] {
		return nil
	}
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.CreditBalance+amount < 0 {
		return repository.ErrInsufficientBalance
	}
	r.appliedKeys[idempotencyKey] = true
	u.CreditBalance += amount
	r.adjustments = append(r.adjustments, ledgerAdjustment{userID, amount, reason, idempotencyKey})
	return nil
}

func (r *ledgerRecorder) ListTransactions(ctx context.Context, userID string) ([]model.AccountBalanceTransaction, error) {
	var out []model.AccountBalanceTransaction
	for _, adj := range r.adjustments {
		if adj.userID == userID {
			out = append(out, model.AccountBalanceTransaction{
				UserID:         adj.userID,
				Amount:         adj.amount,
				Reason:         adj.reason,
				IdempotencyKey: adj.key,
			})
		}
	}
	return out, nil
}

// fileRepoStub holds one file and answers lookups for it.
type fileRepoStub struct {
	file *model.File
}

func (r *fileRepoStub) CreateFile(ctx context.Context, f *model.File) error {
	clone := *f
	r.file = &clone
	return nil
}

func (r *fileRepoStub) GetFileByID(ctx context.Context, id string) (*model.File, error) {
	if r.file == nil || r.file.ID != id {
		return nil, repository.ErrFileNotFound
	}
	clone := *r.file
	return &clone, nil
}

func (r *fileRepoStub) ListFilesByUser(ctx context.Context, userID string) ([]model.File, error) {
	if r.file != nil && r.file.UserID == userID {
		return []model.File{*r.file}, nil
	}
	return nil, nil
}

func (r *fileRepoStub) TransitionState(ctx context.Context, id string, from, to model.FileState) error {
	return r.TransitionStateTx(ctx, nil, id, from, to)
}

func (r *fileRepoStub) TransitionStateTx(ctx context.Context, tx *sql.Tx, id string, from, to model.FileState) error {
	if r.file == nil || r.file.ID != id || r.file.State != from {
		return repository.ErrInvalidState
	}
	r.file.State = to
	return nil
}

func (r *fileRepoStub) FinalizeProcessing(ctx context.Context, id string, issueCount int, originalSize, processedSize int64, cost int) error {
	return errors.New("not implemented")
}

func (r *fileRepoStub) MarkProcessingFailed(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (r *fileRepoStub) SoftDelete(ctx context.Context, id, userID string) error {
	if r.file == nil || r.file.ID != id || r.file.UserID != userID {
		return repository.ErrFileNotFound
	}
	r.file = nil
	return nil
}

// storeStub fakes the presigner.
type storeStub struct {
	uploadKey    string
	uploadType   string
	downloadKey  string
	downloadName string
	presignErr   error
}

func (s *storeStub) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.uploadKey = key
	s.uploadType = contentType
	return "https://storage.test/upload/" + key, nil
}

func (s *storeStub) PresignDownload(ctx context.Context, key, downloadName string) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.downloadKey = key
	s.downloadName = downloadName
	return "https://storage.test/download/" + key, nil
}

// queueStub records sent payloads.
type queueStub struct {
	sent    [][]byte
	sendErr error
}

func (q *queueStub) Send(ctx context.Context, queue string, payload []byte) error {
	if q.sendErr != nil {
		return q.sendErr
	}
	q.sent = append(q.sent, payload)
	return nil
}

func (q *queueStub) SendTx(ctx context.Context, tx *sql.Tx, queue string, payload []byte) error {
	return q.Send(ctx, queue, payload)
}
