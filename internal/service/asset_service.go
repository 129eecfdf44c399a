package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"muxlti/internal/domain"
	"muxlti/internal/logger"
	"muxlti/internal/mux"
	"muxlti/internal/repository"
)

type AssetServiceConfig struct {
	CanInstructorsDeleteAssets bool
	DefaultLanguageCode        string
}

// AssetService - операции преподавателя над ассетами, видимыми из курса.
type AssetService struct {
	assets      AssetStore
	permissions *PermissionService
	loader      *AssetPropertiesLoader
	api         AssetAPI
	storage     SubtitleStorage
	dispatcher  Dispatcher
	cfg         AssetServiceConfig
	log         *logger.Logger
}

func NewAssetService(
	assets AssetStore,
	permissions *PermissionService,
	loader *AssetPropertiesLoader,
	api AssetAPI,
	storage SubtitleStorage,
	dispatcher Dispatcher,
	cfg AssetServiceConfig,
	log *logger.Logger,
) *AssetService {
	return &AssetService{
		assets:      assets,
		permissions: permissions,
		loader:      loader,
		api:         api,
		storage:     storage,
		dispatcher:  dispatcher,
		cfg:         cfg,
		log:         log.With("service", "AssetService"),
	}
}

func (s *AssetService) CanDelete() bool {
	return s.cfg.CanInstructorsDeleteAssets
}

func (s *AssetService) DefaultLanguageCode() string {
	return s.cfg.DefaultLanguageCode
}

// FilterVisible возвращает ассеты, видимые из курса, от новых к старым.
func (s *AssetService) FilterVisible(ctx context.Context, courseID string) ([]domain.Asset, error) {
	pattern, err := s.permissions.VisiblePattern(courseID)
	if err != nil {
		return nil, err
	}
	return s.assets.ListVisible(ctx, pattern)
}

// GetVisible возвращает ErrAssetNotFound, если ассета нет или он не виден из курса.
func (s *AssetService) GetVisible(ctx context.Context, courseID, muxID string) (*domain.Asset, error) {
	pattern, err := s.permissions.VisiblePattern(courseID)
	if err != nil {
		return nil, err
	}
	asset, err := s.assets.GetVisible(ctx, pattern, muxID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

// DeleteAsset ставит в очередь удаление ассета в Mux и сразу удаляет локальную запись.
// Невидимый ассет не удаляется, ошибки при этом нет.
func (s *AssetService) DeleteAsset(ctx context.Context, courseID, muxID string) error {
	if !s.cfg.CanInstructorsDeleteAssets {
		return ErrDeletionDisabled
	}

	asset, err := s.GetVisible(ctx, courseID, muxID)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return nil
		}
		return err
	}

	if err := s.dispatcher.Dispatch(ctx, TaskDeleteAsset, DeleteAssetPayload{MuxID: asset.MuxID}); err != nil {
		return fmt.Errorf("failed to dispatch asset deletion: %w", err)
	}
	if err := s.assets.Delete(ctx, asset.ID); err != nil {
		return err
	}

	s.log.Info("asset deleted", "mux_id", asset.MuxID, "context_id", courseID)
	return nil
}

// HandleDeleteAsset удаляет ассет в Mux. Выполняется в фоне.
func (s *AssetService) HandleDeleteAsset(ctx context.Context, payload DeleteAssetPayload) error {
	if err := s.api.DeleteAsset(ctx, payload.MuxID); err != nil {
		if !errors.Is(err, mux.ErrNotFound) {
			return fmt.Errorf("failed to delete mux asset %s: %w", payload.MuxID, err)
		}
		s.log.Warn("mux asset already deleted", "mux_id", payload.MuxID)
	}
	if err := s.loader.Invalidate(ctx, payload.MuxID); err != nil {
		s.log.Warn("failed to invalidate asset cache", "mux_id", payload.MuxID, "error", err)
	}
	return nil
}

// HandleRefreshAsset перечитывает ассет из Mux, когда он стал готов к просмотру.
func (s *AssetService) HandleRefreshAsset(ctx context.Context, payload RefreshAssetPayload) error {
	props, err := s.loader.Refresh(ctx, payload.MuxID)
	if err != nil {
		return err
	}
	if props == nil {
		s.log.Warn("ready asset not found in mux", "mux_id", payload.MuxID)
		return nil
	}
	s.log.Debug("asset cache refreshed", "mux_id", payload.MuxID, "status", props.Status())
	return nil
}

// SubtitleUpload - файл субтитров, присланный преподавателем.
type SubtitleUpload struct {
	File         io.Reader
	Size         int64
	ContentType  string
	LanguageCode string
}

// UploadSubtitles заменяет субтитры ассета на выбранном языке.
// Mux забирает файл по временной ссылке из хранилища субтитров.
func (s *AssetService) UploadSubtitles(ctx context.Context, courseID, muxID string, upload SubtitleUpload) error {
	asset, err := s.GetVisible(ctx, courseID, muxID)
	if err != nil {
		return err
	}
	props, err := s.loader.Load(ctx, asset.MuxID)
	if err != nil {
		return err
	}
	if props == nil {
		return ErrAssetNotFound
	}
	if upload.File == nil {
		return ErrMissingFile
	}

	fileURL, err := s.storage.Save(ctx, upload.File, upload.Size, upload.ContentType)
	if err != nil {
		return fmt.Errorf("failed to save subtitles file: %w", err)
	}

	languageCode := upload.LanguageCode
	if languageCode == "" {
		languageCode = s.cfg.DefaultLanguageCode
	}

	// Свежие данные: дорожки могли поменяться с момента кэширования
	if props, err = s.loader.Refresh(ctx, asset.MuxID); err != nil {
		return err
	}
	if props != nil {
		for _, track := range props.SubtitleTracks() {
			if track.LanguageCode != languageCode {
				continue
			}
			if err := s.api.DeleteTrack(ctx, asset.MuxID, track.ID); err != nil && !errors.Is(err, mux.ErrNotFound) {
				return fmt.Errorf("failed to delete subtitle track %s: %w", track.ID, err)
			}
		}
	}

	track, err := s.api.CreateTrack(ctx, asset.MuxID, mux.TrackRequest{
		URL:          fileURL,
		Type:         "text",
		TextType:     "subtitles",
		LanguageCode: languageCode,
		Name:         LanguageName(languageCode),
	})
	if err != nil {
		return fmt.Errorf("failed to create subtitle track: %w", err)
	}

	if _, err := s.loader.Refresh(ctx, asset.MuxID); err != nil {
		return err
	}

	s.log.Info("subtitles uploaded", "mux_id", asset.MuxID, "track_id", track.ID, "language", languageCode)
	return nil
}

// DeleteSubtitles удаляет дорожку. Уже удаленная в Mux дорожка ошибкой не считается.
func (s *AssetService) DeleteSubtitles(ctx context.Context, courseID, muxID, trackID string) error {
	asset, err := s.GetVisible(ctx, courseID, muxID)
	if err != nil {
		return err
	}

	if err := s.api.DeleteTrack(ctx, asset.MuxID, trackID); err != nil && !errors.Is(err, mux.ErrNotFound) {
		return fmt.Errorf("failed to delete subtitle track %s: %w", trackID, err)
	}

	if _, err := s.loader.Refresh(ctx, asset.MuxID); err != nil {
		return err
	}
	return nil
}
