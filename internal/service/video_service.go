package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"muxlti/internal/domain"
	"muxlti/internal/logger"
	"muxlti/internal/mux"
)

// SubtitleView - текстовая дорожка ассета для страницы редактирования.
type SubtitleView struct {
	ID           string
	LanguageCode string
	Language     string
	Name         string
	Status       string
}

// AssetView объединяет локальную запись ассета с данными из Mux.
// Properties равно nil, если ассет уже удален в Mux.
type AssetView struct {
	Asset         domain.Asset
	Properties    *domain.AssetProperties
	VideoURL      string
	PosterURL     string
	Subtitles     []SubtitleView
	ErrorMessages []string
	CreatedAt     time.Time
	Duration      time.Duration
	AspectRatio   string
}

func (v *AssetView) Ready() bool {
	return v.Properties != nil && v.Properties.Status() == "ready"
}

type VideoService struct {
	loader *AssetPropertiesLoader
	signer URLSigner
	log    *logger.Logger
}

func NewVideoService(loader *AssetPropertiesLoader, signer URLSigner, log *logger.Logger) *VideoService {
	return &VideoService{
		loader: loader,
		signer: signer,
		log:    log.With("service", "VideoService"),
	}
}

// View загружает данные ассета и подписывает ссылки на видео и постер.
func (s *VideoService) View(ctx context.Context, asset domain.Asset) (*AssetView, error) {
	props, err := s.loader.Load(ctx, asset.MuxID)
	if err != nil {
		return nil, err
	}

	view := &AssetView{Asset: asset, Properties: props}
	if props == nil {
		return view, nil
	}

	view.CreatedAt = props.CreatedAt()
	view.Duration = props.Duration()
	view.AspectRatio = props.AspectRatio()
	view.ErrorMessages = props.ErrorMessages()

	for _, track := range props.SubtitleTracks() {
		view.Subtitles = append(view.Subtitles, SubtitleView{
			ID:           track.ID,
			LanguageCode: track.LanguageCode,
			Language:     LanguageName(track.LanguageCode),
			Name:         track.Name,
			Status:       track.Status,
		})
	}

	if view.VideoURL, err = s.signer.VideoURL(props); err != nil {
		if !errors.Is(err, mux.ErrSigningDisabled) {
			return nil, fmt.Errorf("failed to sign video url: %w", err)
		}
		s.log.Warn("signed playback without signing key", "mux_id", asset.MuxID)
	}
	if view.PosterURL, err = s.signer.PosterURL(props); err != nil {
		if !errors.Is(err, mux.ErrSigningDisabled) {
			return nil, fmt.Errorf("failed to sign poster url: %w", err)
		}
	}

	return view, nil
}

// ViewAll строит представления для списка ассетов, сохраняя порядок.
func (s *VideoService) ViewAll(ctx context.Context, assets []domain.Asset) ([]*AssetView, error) {
	views := make([]*AssetView, 0, len(assets))
	for _, asset := range assets {
		view, err := s.View(ctx, asset)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
