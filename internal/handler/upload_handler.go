package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"muxlti/internal/auth"
	"muxlti/internal/logger"
	"muxlti/internal/service"
)

type UploadHandler struct {
	uploads *service.UploadService
	log     *logger.Logger
}

func NewUploadHandler(uploads *service.UploadService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, log: log.With("handler", "UploadHandler")}
}

// GetUpload возвращает статус ссылки на загрузку: {"id": ..., "status": ...}
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	muxID := r.URL.Query().Get("id")

	ticket, err := h.uploads.GetUpload(r.Context(), session.ContextID, muxID)
	if err != nil {
		if errors.Is(err, service.ErrUploadNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get upload url", "upload_id", muxID, "error", err)
		http.Error(w, "Failed to get upload url", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"id":     ticket.MuxID,
		"status": string(ticket.Status),
	})
}

// CreateUpload создает ссылку для загрузки видео из браузера: {"url": ..., "id": ...}
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	ticket, url, err := h.uploads.CreateUploadURL(r.Context(), session.ContextID, requestOrigin(r))
	if err != nil {
		h.log.Error("failed to create upload url", "context_id", session.ContextID, "error", err)
		http.Error(w, "Failed to create upload url", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{
		"url": url,
		"id":  ticket.MuxID,
	})
}

// requestOrigin - <scheme>://<host> страницы, с которой будет идти загрузка
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
