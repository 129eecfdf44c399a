package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/multierr"

	"muxlti/internal/domain"
	"muxlti/internal/logger"
	"muxlti/internal/repository"
)

// SyncSchedule - в начале каждого часа.
const SyncSchedule = "0 0 * * * *"

// SyncService сверяет локальные тикеты загрузок с Mux и чистит устаревшие данные.
// В продакшене статусы обновляются через вебхуки, синхронизация их подстраховывает.
type SyncService struct {
	api       UploadAPI
	uploads   UploadStore
	subtitles SubtitleStorage
	validity  time.Duration
	now       func() time.Time
	log       *logger.Logger

	cron *cron.Cron
}

func NewSyncService(api UploadAPI, uploads UploadStore, subtitles SubtitleStorage, validity time.Duration, log *logger.Logger) *SyncService {
	return &SyncService{
		api:       api,
		uploads:   uploads,
		subtitles: subtitles,
		validity:  validity,
		now:       time.Now,
		log:       log.With("service", "SyncService"),
	}
}

// Synchronize выполняет все шаги. Ошибка одного шага не мешает остальным.
func (s *SyncService) Synchronize(ctx context.Context) error {
	var errs error

	if err := s.UpdateWaitingUploads(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("update waiting uploads: %w", err))
	}
	if _, err := s.DeleteExpiredUploads(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete expired uploads: %w", err))
	}
	if s.subtitles != nil {
		deleted, err := s.subtitles.DeleteExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete expired subtitles: %w", err))
		} else if deleted > 0 {
			s.log.Info("deleted expired subtitle files", "count", deleted)
		}
	}

	if errs != nil {
		s.log.Error("synchronization finished with errors", "error", errs)
	}
	return errs
}

// UpdateWaitingUploads обновляет каждый тикет в статусе waiting независимо от остальных.
func (s *SyncService) UpdateWaitingUploads(ctx context.Context) error {
	tickets, err := s.uploads.ListByStatus(ctx, domain.UploadStatusWaiting)
	if err != nil {
		return err
	}

	failed := 0
	for _, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.UpdateWaitingUpload(ctx, ticket.MuxID); err != nil {
			failed++
			s.log.Warn("failed to update upload url", "upload_id", ticket.MuxID, "error", err)
		}
	}

	s.log.Info("updated waiting upload urls", "count", len(tickets), "failed", failed)
	return nil
}

// UpdateWaitingUpload переводит тикет в asset_created и создает ассет, когда Mux его создал.
// Повторный вызов ничего не меняет.
func (s *SyncService) UpdateWaitingUpload(ctx context.Context, muxID string) error {
	ticket, err := s.uploads.GetWaiting(ctx, muxID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	upload, err := s.api.GetDirectUpload(ctx, muxID)
	if err != nil {
		return err
	}

	status, err := domain.ParseUploadStatus(upload.Status)
	if err != nil {
		s.log.Warn("unknown upload status from mux", "upload_id", muxID, "status", upload.Status)
		return nil
	}

	switch status {
	case domain.UploadStatusCreated:
	case domain.UploadStatusWaiting:
		return nil
	case domain.UploadStatusErrored, domain.UploadStatusCancelled, domain.UploadStatusTimedOut:
		// тикет остается waiting и удаляется по истечении срока
		s.log.Info("upload finished without asset", "upload_id", muxID, "status", status)
		return nil
	}

	created, err := s.uploads.CompleteUpload(ctx, ticket, upload.AssetID)
	if err != nil {
		return err
	}

	s.log.Info("upload url updated",
		"upload_id", ticket.MuxID,
		"status", ticket.Status,
		"asset_id", upload.AssetID,
		"asset_created", created,
	)
	return nil
}

// DeleteExpiredUploads удаляет тикеты, срок действия ссылок которых истек.
func (s *SyncService) DeleteExpiredUploads(ctx context.Context) (int64, error) {
	cutoff := domain.ExpiryCutoff(s.now(), s.validity, domain.UploadExpiryMargin)
	deleted, err := s.uploads.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("deleted expired upload urls", "count", deleted)
	return deleted, nil
}

// HandleRefreshUpload - задача, которую ставит вебхук video.asset.ready.
func (s *SyncService) HandleRefreshUpload(ctx context.Context, payload RefreshUploadPayload) error {
	return s.UpdateWaitingUpload(ctx, payload.UploadID)
}

// Start запускает ежечасную синхронизацию.
func (s *SyncService) Start(ctx context.Context) error {
	s.cron = cron.New()
	err := s.cron.AddFunc(SyncSchedule, func() {
		if err := s.Synchronize(ctx); err != nil {
			return
		}
		s.log.Info("synchronization completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule synchronization: %w", err)
	}
	s.cron.Start()
	s.log.Info("synchronization scheduled", "schedule", SyncSchedule)
	return nil
}

func (s *SyncService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
