package api

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bytestream/internal/filestore"
	"bytestream/internal/password"
)

var errFileNotFound = errors.New("File not found")

// handleDescribe reports whether a token is password-protected so clients
// can decide to prompt before attempting retrieval. Pure read.
func (a *API) handleDescribe(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, errFileNotFound)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	f, err := a.store.Files.FileByID(ctx, id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			respondError(w, http.StatusNotFound, errFileNotFound)
			return
		}
		a.log.Error().Err(err).Str("file_id", id.String()).Msg("lookup file")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"fileUrl":           a.shareLink(f.ID),
		"passwordProtected": f.PasswordProtected(),
		"originalName":      f.OriginalName,
	})
}

// handleFetch gates access to the stored artifact: the password decision
// table runs first, then the download counter is bumped and a short-lived
// location URL is returned.
func (a *API) handleFetch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, errFileNotFound)
		return
	}

	// The password field may be any JSON type; an empty body means no
	// password was supplied.
	var req struct {
		Password any `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	f, err := a.store.Files.FileByID(ctx, id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			respondError(w, http.StatusNotFound, errFileNotFound)
			return
		}
		a.log.Error().Err(err).Str("file_id", id.String()).Msg("lookup file")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	if f.PasswordProtected() {
		if req.Password == nil {
			respondError(w, http.StatusUnauthorized, errors.New("Password required"))
			return
		}
		supplied, ok := req.Password.(string)
		if !ok {
			respondError(w, http.StatusBadRequest, errors.New("Invalid password format"))
			return
		}
		if !password.Matches(f.PasswordHash, supplied) {
			respondError(w, http.StatusForbidden, errors.New("Incorrect password"))
			return
		}
	}

	if err := a.store.Files.IncrementDownloads(ctx, f.ID); err != nil {
		a.log.Error().Err(err).Str("file_id", f.ID.String()).Msg("increment downloads")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	location, err := a.store.Blob.PresignGet(ctx, a.config.Bucket, f.StorageKey, presignTTL)
	if err != nil {
		a.log.Error().Err(err).Str("key", f.StorageKey).Msg("presign get")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	a.publishJSON(ctx, downloadedTopic, map[string]any{
		"file_id":       f.ID,
		"original_name": f.OriginalName,
	})
	downloadsTotal.Inc()

	respondJSON(w, http.StatusOK, map[string]any{"path": location})
}

// handleList returns the metadata catalogue. The route is admin-only: it
// answers 404 unless an admin token is configured and presented.
func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	if a.config.AdminToken == "" {
		respondError(w, http.StatusNotFound, errors.New("Not found"))
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.config.AdminToken)) != 1 {
		respondError(w, http.StatusUnauthorized, errors.New("Unauthorized"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	files, err := a.store.Files.Files(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("list files")
		respondError(w, http.StatusInternalServerError, errors.New("Internal Server Error"))
		return
	}

	out := make([]map[string]any, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]any{
			"id":                f.ID,
			"originalName":      f.OriginalName,
			"passwordProtected": f.PasswordProtected(),
			"createdAt":         f.CreatedAt,
			"createdBy":         f.CreatedBy,
			"downloads":         f.Downloads,
		})
	}

	respondJSON(w, http.StatusOK, out)
}
