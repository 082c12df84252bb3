package filestore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// File is the metadata record for one uploaded artifact. The ID doubles as
// the retrieval token handed back to the uploader.
type File struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	StorageKey   string            `gorm:"type:text;not null" json:"-"`
	OriginalName string            `gorm:"type:text;not null" json:"originalName"`
	PasswordHash string            `gorm:"type:text" json:"-"`
	CreatedBy    string            `gorm:"type:text" json:"createdBy,omitempty"`
	Meta         datatypes.JSONMap `gorm:"type:jsonb" json:"meta,omitempty"`
	Downloads    int64             `gorm:"not null;default:0" json:"downloads"`
	CreatedAt    time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime" json:"createdAt"`
}

func (File) TableName() string { return "files" }

// PasswordProtected reports whether a retrieval requires a credential.
func (f File) PasswordProtected() bool { return f.PasswordHash != "" }

// UploadAttempt records one admitted upload for quota accounting. Rows are
// never mutated; the janitor deletes them once they age out of any window.
type UploadAttempt struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceAddress string    `gorm:"type:text;not null;index:idx_upload_attempts_source_ts"`
	UserName      string    `gorm:"type:text"`
	FileName      string    `gorm:"type:text"`
	Timestamp     time.Time `gorm:"type:timestamptz;not null;index:idx_upload_attempts_source_ts"`
}

func (UploadAttempt) TableName() string { return "upload_attempts" }
