package service

import (
	"context"
	"database/sql"
)

// ObjectStore is the slice of the storage client the services need:
// presigned upload and download capabilities. Satisfied by *storage.Client.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key, downloadName string) (string, error)
}

// JobQueue enqueues jobs, optionally inside a caller-owned transaction.
// Satisfied by *queue.Client.
type JobQueue interface {
	Send(ctx context.Context, queue string, payload []byte) error
	SendTx(ctx context.Context, tx *sql.Tx, queue string, payload []byte) error
}
