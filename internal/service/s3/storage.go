package s3

import (
	"context"
	"io"
	"time"
)

// Object - запись из листинга бакета
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage определяет интерфейс для работы с S3-совместимым хранилищем
type Storage interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	DeleteObject(ctx context.Context, key string) error
}

var _ Storage = (*Client)(nil)
