package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"muxlti/internal/auth"
	"muxlti/internal/logger"
	"muxlti/internal/service"
)

// maxSubtitlesSize - ограничение на размер файла субтитров
const maxSubtitlesSize = 10 << 20

type VideoHandler struct {
	assets *service.AssetService
	videos *service.VideoService
	log    *logger.Logger
}

func NewVideoHandler(assets *service.AssetService, videos *service.VideoService, log *logger.Logger) *VideoHandler {
	return &VideoHandler{
		assets: assets,
		videos: videos,
		log:    log.With("handler", "VideoHandler"),
	}
}

type watchPage struct {
	Asset *service.AssetView
}

type editPage struct {
	SessionID       string
	Assets          []*service.AssetView
	CanDelete       bool
	Languages       []service.LanguageOption
	DefaultLanguage string
}

func editURL(sessionID string) string {
	return "/mux/edit/" + sessionID
}

// Launch показывает видео, выбранное в параметре запуска custom_video_id
func (h *VideoHandler) Launch(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	page := watchPage{}

	if muxID := session.CustomParam("video_id"); muxID != "" {
		asset, err := h.assets.GetVisible(r.Context(), session.ContextID, muxID)
		switch {
		case err == nil:
			view, err := h.videos.View(r.Context(), *asset)
			if err != nil {
				h.log.Error("failed to load asset", "mux_id", muxID, "error", err)
				http.Error(w, "Failed to load video", http.StatusInternalServerError)
				return
			}
			page.Asset = view
		case errors.Is(err, service.ErrAssetNotFound):
		default:
			h.log.Error("failed to get asset", "mux_id", muxID, "error", err)
			http.Error(w, "Failed to load video", http.StatusInternalServerError)
			return
		}
	}

	render(w, h.log, "watch.html", page)
}

// Edit показывает преподавателю все видимые из курса видео
func (h *VideoHandler) Edit(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	assets, err := h.assets.FilterVisible(r.Context(), session.ContextID)
	if err != nil {
		h.log.Error("failed to list assets", "context_id", session.ContextID, "error", err)
		http.Error(w, "Failed to list videos", http.StatusInternalServerError)
		return
	}

	views, err := h.videos.ViewAll(r.Context(), assets)
	if err != nil {
		h.log.Error("failed to load assets", "context_id", session.ContextID, "error", err)
		http.Error(w, "Failed to list videos", http.StatusInternalServerError)
		return
	}

	render(w, h.log, "edit.html", editPage{
		SessionID:       session.ID,
		Assets:          views,
		CanDelete:       h.assets.CanDelete(),
		Languages:       service.LanguageOptions(),
		DefaultLanguage: h.assets.DefaultLanguageCode(),
	})
}

// Delete удаляет ассет локально и ставит в очередь удаление в Mux
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if !h.assets.CanDelete() {
		http.Error(w, "Asset deletion is not allowed", http.StatusForbidden)
		return
	}

	muxID := chi.URLParam(r, "muxID")
	if err := h.assets.DeleteAsset(r.Context(), session.ContextID, muxID); err != nil {
		if errors.Is(err, service.ErrDeletionDisabled) {
			http.Error(w, "Asset deletion is not allowed", http.StatusForbidden)
			return
		}
		h.log.Error("failed to delete asset", "mux_id", muxID, "error", err)
		http.Error(w, "Failed to delete video", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, editURL(session.ID), http.StatusSeeOther)
}

// UploadSubtitles добавляет дорожку субтитров, заменяя дорожку на том же языке
func (h *VideoHandler) UploadSubtitles(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	muxID := chi.URLParam(r, "muxID")
	r.Body = http.MaxBytesReader(w, r.Body, maxSubtitlesSize+1<<20)
	// остальные ошибки разбора формы сводятся к отсутствию файла ниже
	var tooLarge *http.MaxBytesError
	if err := r.ParseMultipartForm(maxSubtitlesSize); errors.As(err, &tooLarge) {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	upload := service.SubtitleUpload{LanguageCode: r.FormValue("language")}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		upload.File = file
		upload.Size = header.Size
		upload.ContentType = header.Header.Get("Content-Type")
	}

	err = h.assets.UploadSubtitles(r.Context(), session.ContextID, muxID, upload)
	switch {
	case err == nil:
		http.Redirect(w, r, editURL(session.ID), http.StatusSeeOther)
	case errors.Is(err, service.ErrAssetNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, service.ErrMissingFile):
		http.Error(w, "Missing file", http.StatusBadRequest)
	default:
		h.log.Error("failed to upload subtitles", "mux_id", muxID, "error", err)
		http.Error(w, "Failed to upload subtitles", http.StatusInternalServerError)
	}
}

// DeleteSubtitles удаляет дорожку субтитров
func (h *VideoHandler) DeleteSubtitles(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	muxID := chi.URLParam(r, "muxID")
	trackID := chi.URLParam(r, "trackID")

	err := h.assets.DeleteSubtitles(r.Context(), session.ContextID, muxID, trackID)
	switch {
	case err == nil:
		http.Redirect(w, r, editURL(session.ID), http.StatusSeeOther)
	case errors.Is(err, service.ErrAssetNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		h.log.Error("failed to delete subtitles", "mux_id", muxID, "track_id", trackID, "error", err)
		http.Error(w, "Failed to delete subtitles", http.StatusInternalServerError)
	}
}
