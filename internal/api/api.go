// Package api exposes the HTTP surface of the file-sharing backend.
package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bytestream/internal/filestore"
)

const (
	maxUploadBytes  = 5 << 20 // single-file ceiling
	maxFormOverhead = 64 << 10
	presignTTL      = 15 * time.Minute

	uploadedTopic   = "bytestream.files.uploaded"
	downloadedTopic = "bytestream.files.downloaded"
	emailSentTopic  = "bytestream.email.sent"
)

// allowedExtensions is the upload allow-list: images, documents, videos, and
// audio files.
var allowedExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {},
	"ppt": {}, "pptx": {}, "txt": {}, "mp3": {}, "mp4": {},
}

// FileStore is the metadata persistence surface the handlers depend on.
type FileStore interface {
	CreateFile(ctx context.Context, f *filestore.File) error
	FileByID(ctx context.Context, id uuid.UUID) (*filestore.File, error)
	Files(ctx context.Context) ([]filestore.File, error)
	IncrementDownloads(ctx context.Context, id uuid.UUID) error
}

// Admitter gates uploads against the per-source daily quota.
type Admitter interface {
	Admit(ctx context.Context, source, userName, fileName string) (bool, error)
}

// BlobStore stores and resolves raw artifact bytes.
type BlobStore interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType, sha256 string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// LinkMailer dispatches a retrieval-link message.
type LinkMailer interface {
	SendLink(ctx context.Context, to, token, fileName string) error
}

// EventPublisher emits domain events; publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Store bundles external collaborators required by the API layer. Mailer and
// Bus are optional; the rest are not.
type Store struct {
	Files  FileStore
	Quota  Admitter
	Blob   BlobStore
	Mailer LinkMailer
	Bus    EventPublisher
}

// Config controls runtime behaviour for the HTTP handlers.
type Config struct {
	BaseURL        string
	Bucket         string
	AdminToken     string
	AllowedOrigins []string
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store  *Store
	config Config
	log    zerolog.Logger
}

// New initialises the API layer, validating the required collaborators.
func New(store *Store, cfg Config, log zerolog.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.Files == nil {
		return nil, errors.New("file store is required")
	}
	if store.Quota == nil {
		return nil, errors.New("upload quota is required")
	}
	if store.Blob == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("artifact bucket is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &API{store: store, config: cfg, log: log}, nil
}

// shareLink builds the public retrieval URL for a token.
func (a *API) shareLink(id uuid.UUID) string {
	return a.config.BaseURL + "/file/" + id.String()
}

func (a *API) publishJSON(ctx context.Context, subject string, payload map[string]any) {
	if a.store.Bus == nil || subject == "" {
		return
	}
	if err := a.store.Bus.Publish(ctx, subject, payload); err != nil {
		a.log.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
