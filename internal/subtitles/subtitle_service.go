// Package subtitles хранит загруженные файлы субтитров, пока Mux их не заберет.
package subtitles

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"muxlti/internal/logger"
	"muxlti/internal/service/s3"
)

const (
	// MediaFolder - префикс ключей временных файлов субтитров
	MediaFolder = "mux/subtitles"
	// Lifetime - время жизни файла и ссылки на него
	Lifetime = time.Hour
)

type Service struct {
	storage s3.Storage
	now     func() time.Time
	log     *logger.Logger
}

func NewService(storage s3.Storage, log *logger.Logger) *Service {
	return &Service{
		storage: storage,
		now:     time.Now,
		log:     log.With("service", "SubtitleService"),
	}
}

// Save сохраняет файл под случайным именем и возвращает временную ссылку на него
func (s *Service) Save(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%s", MediaFolder, uuid.New().String())
	if contentType == "" {
		contentType = "text/plain"
	}

	if err := s.storage.Upload(ctx, key, r, contentType); err != nil {
		return "", err
	}

	url, err := s.storage.PresignGet(ctx, key, Lifetime)
	if err != nil {
		return "", err
	}

	s.log.Debug("subtitle file saved", "key", key, "size", size)
	return url, nil
}

// DeleteExpired удаляет файлы старше часа и возвращает их количество
func (s *Service) DeleteExpired(ctx context.Context) (int, error) {
	objects, err := s.storage.List(ctx, MediaFolder+"/")
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-Lifetime)
	deleted := 0
	var errs error
	for _, obj := range objects {
		if !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := s.storage.DeleteObject(ctx, obj.Key); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		deleted++
		s.log.Info("deleted subtitle file", "key", obj.Key)
	}

	return deleted, errs
}
