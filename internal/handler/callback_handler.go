package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"muxlti/internal/logger"
	"muxlti/internal/mux"
	"muxlti/internal/service"
)

const (
	maxWebhookBody = 1 << 20

	eventAssetReady = "video.asset.ready"
)

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID       string `json:"id"`
		UploadID string `json:"upload_id"`
	} `json:"data"`
}

// CallbackHandler принимает вебхуки Mux.
// https://docs.mux.com/guides/video/listen-for-webhooks
type CallbackHandler struct {
	verifier   *mux.WebhookVerifier
	dispatcher service.Dispatcher
	log        *logger.Logger
}

func NewCallbackHandler(verifier *mux.WebhookVerifier, dispatcher service.Dispatcher, log *logger.Logger) *CallbackHandler {
	return &CallbackHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		log:        log.With("handler", "CallbackHandler"),
	}
}

func (h *CallbackHandler) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifier.Verify(r.Header.Get(mux.SignatureHeader), body) {
		h.log.Warn("rejected webhook with invalid signature", "remote_addr", r.RemoteAddr)
		http.Error(w, "Invalid Signature", http.StatusForbidden)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if event.Type != eventAssetReady {
		w.WriteHeader(http.StatusOK)
		return
	}

	// в кэше мог остаться снимок ассета в статусе preparing
	if event.Data.ID != "" {
		payload := service.RefreshAssetPayload{MuxID: event.Data.ID}
		if err := h.dispatcher.Dispatch(r.Context(), service.TaskRefreshAsset, payload); err != nil {
			h.log.Error("failed to dispatch asset refresh", "mux_id", event.Data.ID, "error", err)
			http.Error(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	}
	if event.Data.UploadID != "" {
		payload := service.RefreshUploadPayload{UploadID: event.Data.UploadID}
		if err := h.dispatcher.Dispatch(r.Context(), service.TaskRefreshUpload, payload); err != nil {
			h.log.Error("failed to dispatch upload refresh", "upload_id", event.Data.UploadID, "error", err)
			http.Error(w, "Failed to process event", http.StatusInternalServerError)
			return
		}
	}
	h.log.Info("asset ready", "mux_id", event.Data.ID, "upload_id", event.Data.UploadID)

	w.WriteHeader(http.StatusOK)
}
