package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"bytestream/internal/filestore"
	"bytestream/internal/password"
)

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+maxFormOverhead)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			uploadsRejectedTotal.WithLabelValues("too_large").Inc()
			respondError(w, http.StatusRequestEntityTooLarge, errors.New("File exceeds the 5 MB limit."))
			return
		}
		uploadsRejectedTotal.WithLabelValues("missing_file").Inc()
		respondError(w, http.StatusBadRequest, errors.New("No file attached."))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		uploadsRejectedTotal.WithLabelValues("missing_file").Inc()
		respondError(w, http.StatusBadRequest, errors.New("No file attached."))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		uploadsRejectedTotal.WithLabelValues("too_large").Inc()
		respondError(w, http.StatusRequestEntityTooLarge, errors.New("File exceeds the 5 MB limit."))
		return
	}

	if !extensionAllowed(header.Filename) {
		uploadsRejectedTotal.WithLabelValues("unsupported_type").Inc()
		respondError(w, http.StatusBadRequest, errors.New("Only images, documents, videos, and audio files are allowed!"))
		return
	}

	createdBy := strings.TrimSpace(r.FormValue("createdBy"))
	source := sourceAddress(r)

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	admitted, err := a.store.Quota.Admit(ctx, source, createdBy, header.Filename)
	if err != nil {
		a.log.Error().Err(err).Str("source", source).Msg("admission check")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}
	if !admitted {
		uploadsRejectedTotal.WithLabelValues("rate_limited").Inc()
		respondError(w, http.StatusTooManyRequests, errors.New("You have reached the upload limit for today."))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		a.log.Error().Err(err).Msg("read upload")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID := uuid.New()
	key := "uploads/" + fileID.String() + "/" + path.Base(header.Filename)

	if err := a.store.Blob.PutObject(ctx, a.config.Bucket, key, bytes.NewReader(data), int64(len(data)), contentType, digest); err != nil {
		a.log.Error().Err(err).Str("key", key).Msg("store artifact")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	record := &filestore.File{
		ID:           fileID,
		StorageKey:   key,
		OriginalName: header.Filename,
		CreatedBy:    createdBy,
		Meta: datatypes.JSONMap{
			"size":         len(data),
			"content_type": contentType,
			"sha256":       digest,
		},
		Downloads: 0,
		CreatedAt: time.Now().UTC(),
	}

	if pw := r.FormValue("password"); pw != "" {
		hash, err := password.Hash(pw)
		if err != nil {
			a.log.Error().Err(err).Msg("hash password")
			respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
			return
		}
		record.PasswordHash = hash
	}

	if err := a.store.Files.CreateFile(ctx, record); err != nil {
		a.log.Error().Err(err).Str("file_id", fileID.String()).Msg("persist file metadata")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	a.publishJSON(ctx, uploadedTopic, map[string]any{
		"file_id":            fileID,
		"original_name":      header.Filename,
		"size":               len(data),
		"password_protected": record.PasswordProtected(),
	})
	uploadsTotal.Inc()

	respondJSON(w, http.StatusOK, map[string]any{
		"fileLink": fileID.String(),
		"fileName": header.Filename,
	})
}

func extensionAllowed(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[ext]
	return ok
}

// sourceAddress identifies the uploader for quota accounting. RealIP
// middleware has already folded proxy headers into RemoteAddr.
func sourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
