package model

import "time"

// FileState is the lifecycle state of an uploaded file.
type FileState string

const (
	FileStateUploading        FileState = "uploading"
	FileStateProcessing       FileState = "processing"
	FileStateProcessed        FileState = "processed"
	FileStatePurchased        FileState = "purchased"
	FileStateProcessingFailed FileState = "processing_failed"
)

// transitions lists the legal edges of the lifecycle. A failed file may
// re-enter processing on a fresh process request. Soft deletion is a side
// channel and does not appear here.
var transitions = map[FileState][]FileState{
	FileStateUploading:        {FileStateProcessing},
	FileStateProcessing:       {FileStateProcessed, FileStateProcessingFailed},
	FileStateProcessed:        {FileStatePurchased},
	FileStateProcessingFailed: {FileStateProcessing},
}

// CanTransition reports whether moving from one state to another is legal.
func (s FileState) CanTransition(to FileState) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known lifecycle state.
func (s FileState) Valid() bool {
	switch s {
	case FileStateUploading, FileStateProcessing, FileStateProcessed,
		FileStatePurchased, FileStateProcessingFailed:
		return true
	}
	return false
}

// File represents one uploaded document and its processing lifecycle.
// Size and cost fields are unknown until the worker finishes a processing
// cycle, hence the pointer types.
type File struct {
	ID                     string     `db:"id" json:"id"`
	UserID                 string     `db:"user_id" json:"user_id"`
	Name                   string     `db:"name" json:"name"`
	FileType               string     `db:"file_type" json:"file_type"`
	State                  FileState  `db:"state" json:"state"`
	IssueCount             int        `db:"issue_count" json:"issue_count"`
	OriginalFileSizeBytes  *int64     `db:"original_file_size_bytes" json:"original_file_size_bytes"`
	ProcessedFileSizeBytes *int64     `db:"processed_file_size_bytes" json:"processed_file_size_bytes"`
	CostInCredits          *int       `db:"cost_in_credits" json:"cost_in_credits"`
	DeletedAt              *time.Time `db:"deleted_at" json:"-"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// StorageKey is the object key holding the original upload. By convention the
// client uploads directly to a key equal to the file ID.
func (f *File) StorageKey() string {
	return f.ID
}

// ProcessedStorageKey is the object key the worker publishes the fixed
// document under.
func (f *File) ProcessedStorageKey() string {
	return f.ID + "-processed"
}
