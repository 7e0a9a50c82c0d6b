package domain

import (
	"time"

	"github.com/google/uuid"
)

type FileCategory string

const (
	FileCategoryLabReport           FileCategory = "LabReport"
	FileCategoryScan                FileCategory = "Scan"
	FileCategoryUserUpload          FileCategory = "UserUpload"
	FileCategoryFunctionalTestVideo FileCategory = "FunctionalTestVideo"
	FileCategoryAudioNote           FileCategory = "AudioNote"
)

func (c FileCategory) Valid() bool {
	switch c {
	case FileCategoryLabReport, FileCategoryScan, FileCategoryUserUpload, FileCategoryFunctionalTestVideo, FileCategoryAudioNote:
		return true
	default:
		return false
	}
}

// MediaFile records an object a user was allowed to upload.
type MediaFile struct {
	ID          uuid.UUID    `gorm:"type:varchar(36);primaryKey"`
	UserID      string       `gorm:"type:text;not null;index:idx_media_files_user"`
	Category    FileCategory `gorm:"type:text;not null"`
	Bucket      string       `gorm:"type:varchar(100);not null"`
	ObjectKey   string       `gorm:"type:varchar(500);not null"`
	Filename    string       `gorm:"type:varchar(255)"`
	MimeType    string       `gorm:"type:varchar(100)"`
	SizeBytes   *int64
	IsProcessed bool      `gorm:"not null;default:false"`
	UploadedAt  time.Time `gorm:"not null"`
}

func (MediaFile) TableName() string { return "media_files" }

type UploadRequest struct {
	Filename    string       `json:"filename"`
	FileType    FileCategory `json:"file_type"`
	ContentType string       `json:"content_type"`
}

type UploadURL struct {
	UploadURL string `json:"upload_url"`
	FilePath  string `json:"file_path"`
	Note      string `json:"note,omitempty"`
}
