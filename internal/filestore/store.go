// Package filestore persists file metadata and upload-attempt records in
// PostgreSQL through GORM.
package filestore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("record not found")

// Connect establishes a PostgreSQL backed GORM session with pool limits
// suitable for a single service instance.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	database, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return database, nil
}

// Close releases the underlying sql.DB resources for the provided GORM handle.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Store exposes the persistence operations needed by the upload and
// retrieval flows.
type Store struct {
	orm *gorm.DB
}

// New wraps an open GORM handle.
func New(orm *gorm.DB) *Store {
	return &Store{orm: orm}
}

// Migrate performs schema migrations for the persistent models.
func (s *Store) Migrate(ctx context.Context) error {
	return s.orm.WithContext(ctx).AutoMigrate(&File{}, &UploadAttempt{})
}

// CreateFile persists a new metadata record.
func (s *Store) CreateFile(ctx context.Context, f *File) error {
	return s.orm.WithContext(ctx).Create(f).Error
}

// FileByID fetches one metadata record by its token.
func (s *Store) FileByID(ctx context.Context, id uuid.UUID) (*File, error) {
	var f File
	err := s.orm.WithContext(ctx).First(&f, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Files returns every metadata record, newest first.
func (s *Store) Files(ctx context.Context) ([]File, error) {
	var files []File
	err := s.orm.WithContext(ctx).Order("created_at DESC").Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// IncrementDownloads bumps the retrieval counter in a single UPDATE so
// concurrent retrievals cannot lose increments.
func (s *Store) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	tx := s.orm.WithContext(ctx).
		Model(&File{}).
		Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveUploadSlot records the attempt and checks the quota in one
// statement: the row is only inserted while fewer than limit attempts exist
// for the source since windowStart. Returns false when the quota is spent.
func (s *Store) ReserveUploadSlot(ctx context.Context, attempt UploadAttempt, windowStart time.Time, limit int) (bool, error) {
	const query = `
        INSERT INTO upload_attempts (id, source_address, user_name, file_name, timestamp)
        SELECT ?, ?, ?, ?, ?
        WHERE (
            SELECT COUNT(*) FROM upload_attempts
            WHERE source_address = ? AND timestamp >= ?
        ) < ?`

	tx := s.orm.WithContext(ctx).Exec(query,
		attempt.ID, attempt.SourceAddress, attempt.UserName, attempt.FileName, attempt.Timestamp,
		attempt.SourceAddress, windowStart, limit,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// PruneAttempts deletes attempt rows older than the cutoff and reports how
// many were removed.
func (s *Store) PruneAttempts(ctx context.Context, olderThan time.Time) (int64, error) {
	tx := s.orm.WithContext(ctx).Where("timestamp < ?", olderThan).Delete(&UploadAttempt{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}
