package dto

import (
	"time"

	"app/internal/model"
)

// FileDTO is the wire form of a file record.
type FileDTO struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	FileType               string    `json:"fileType"`
	State                  string    `json:"state"`
	IssueCount             int       `json:"issueCount"`
	OriginalFileSizeBytes  *int64    `json:"originalFileSizeBytes"`
	ProcessedFileSizeBytes *int64    `json:"processedFileSizeBytes"`
	CostInCredits          *int      `json:"costInCredits"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// NewFileDTO maps a model.File onto its wire form.
func NewFileDTO(f *model.File) FileDTO {
	return FileDTO{
		ID:                     f.ID,
		Name:                   f.Name,
		FileType:               f.FileType,
		State:                  string(f.State),
		IssueCount:             f.IssueCount,
		OriginalFileSizeBytes:  f.OriginalFileSizeBytes,
		ProcessedFileSizeBytes: f.ProcessedFileSizeBytes,
		CostInCredits:          f.CostInCredits,
		CreatedAt:              f.CreatedAt,
		UpdatedAt:              f.UpdatedAt,
	}
}

// CreateFileRequest is the body of POST /user/files.
type CreateFileRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType" validate:"required"`
}

// CreateFileData is the payload answered to a file creation.
type CreateFileData struct {
	File      FileDTO `json:"file"`
	UploadURL string  `json:"uploadUrl"`
}

// DownloadData carries the time-limited retrieval capability.
type DownloadData struct {
	DownloadURL string `json:"downloadUrl"`
}
