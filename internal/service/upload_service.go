package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"muxlti/internal/domain"
	"muxlti/internal/logger"
	"muxlti/internal/repository"
)

type UploadServiceConfig struct {
	Validity       time.Duration
	SignedPlayback bool
}

// UploadService выдает ссылки для прямой загрузки видео в Mux.
type UploadService struct {
	api      UploadAPI
	contexts LtiContextStore
	uploads  UploadStore
	cfg      UploadServiceConfig
	log      *logger.Logger
}

func NewUploadService(api UploadAPI, contexts LtiContextStore, uploads UploadStore, cfg UploadServiceConfig, log *logger.Logger) *UploadService {
	return &UploadService{
		api:      api,
		contexts: contexts,
		uploads:  uploads,
		cfg:      cfg,
		log:      log.With("service", "UploadService"),
	}
}

// CreateUploadURL создает ссылку в Mux и локальный тикет в статусе waiting.
func (s *UploadService) CreateUploadURL(ctx context.Context, contextID, origin string) (*domain.UploadTicket, string, error) {
	upload, err := s.api.CreateDirectUpload(ctx, origin, s.cfg.SignedPlayback, s.cfg.Validity)
	if err != nil {
		return nil, "", err
	}

	ltiContext, err := s.contexts.GetOrCreate(ctx, contextID)
	if err != nil {
		return nil, "", err
	}

	ticket, err := s.uploads.Create(ctx, upload.ID, ltiContext.ID)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("upload url created", "upload_id", upload.ID, "context_id", contextID)
	return ticket, upload.URL, nil
}

// GetUpload возвращает ErrUploadNotFound, если нет контекста или тикета в нем.
func (s *UploadService) GetUpload(ctx context.Context, contextID, muxID string) (*domain.UploadTicket, error) {
	ltiContext, err := s.contexts.GetByContextID(ctx, contextID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get lti context: %w", err)
	}

	ticket, err := s.uploads.Get(ctx, muxID, ltiContext.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return ticket, nil
}
