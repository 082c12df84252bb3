package api

import (
	"errors"
	"net/http"
	"strings"
)

func (a *API) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FileLink string `json:"fileLink"`
		FileName string `json:"fileName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("Invalid request body"))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FileLink = strings.TrimSpace(req.FileLink)
	if req.Email == "" || req.FileLink == "" {
		respondError(w, http.StatusBadRequest, errors.New("email and fileLink are required"))
		return
	}
	if req.FileName == "" {
		req.FileName = "your file"
	}

	if a.store.Mailer == nil {
		a.log.Error().Msg("email requested but no mailer configured")
		respondError(w, http.StatusInternalServerError, errors.New("Failed to send email."))
		return
	}

	if err := a.store.Mailer.SendLink(r.Context(), req.Email, req.FileLink, req.FileName); err != nil {
		a.log.Error().Err(err).Str("file_link", req.FileLink).Msg("send email")
		emailsTotal.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, errors.New("Failed to send email."))
		return
	}

	a.publishJSON(r.Context(), emailSentTopic, map[string]any{
		"file_link": req.FileLink,
		"file_name": req.FileName,
	})
	emailsTotal.WithLabelValues("sent").Inc()

	respondJSON(w, http.StatusOK, map[string]any{"message": "Email sent successfully."})
}
