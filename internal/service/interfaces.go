package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"muxlti/internal/domain"
	"muxlti/internal/mux"
)

type AssetStore interface {
	ListVisible(ctx context.Context, pattern string) ([]domain.Asset, error)
	GetVisible(ctx context.Context, pattern, muxID string) (*domain.Asset, error)
	Delete(ctx context.Context, id int64) error
}

type LtiContextStore interface {
	GetOrCreate(ctx context.Context, contextID string) (*domain.LtiContext, error)
	GetByContextID(ctx context.Context, contextID string) (*domain.LtiContext, error)
}

type UploadStore interface {
	Create(ctx context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error)
	Get(ctx context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error)
	GetWaiting(ctx context.Context, muxID string) (*domain.UploadTicket, error)
	ListByStatus(ctx context.Context, status domain.UploadStatus) ([]domain.UploadTicket, error)
	CompleteUpload(ctx context.Context, ticket *domain.UploadTicket, assetMuxID string) (bool, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssetAPI - операции Mux API над ассетами.
type AssetAPI interface {
	GetAsset(ctx context.Context, assetID string) (json.RawMessage, error)
	DeleteAsset(ctx context.Context, assetID string) error
	CreateTrack(ctx context.Context, assetID string, track mux.TrackRequest) (*domain.Track, error)
	DeleteTrack(ctx context.Context, assetID, trackID string) error
}

// UploadAPI - операции Mux API над прямыми загрузками.
type UploadAPI interface {
	CreateDirectUpload(ctx context.Context, origin string, signed bool, validity time.Duration) (*mux.DirectUpload, error)
	GetDirectUpload(ctx context.Context, uploadID string) (*mux.DirectUpload, error)
}

type URLSigner interface {
	VideoURL(props *domain.AssetProperties) (string, error)
	PosterURL(props *domain.AssetProperties) (string, error)
}

// SubtitleStorage - временное хранилище файлов субтитров, откуда их забирает Mux.
type SubtitleStorage interface {
	Save(ctx context.Context, r io.Reader, size int64, contentType string) (string, error)
	DeleteExpired(ctx context.Context) (int, error)
}

// Dispatcher отправляет фоновую задачу в очередь.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload interface{}) error
}

const (
	TaskDeleteAsset   = "delete_asset"
	TaskRefreshUpload = "refresh_upload"
	TaskRefreshAsset  = "refresh_asset"
)

type DeleteAssetPayload struct {
	MuxID string `json:"mux_id"`
}

type RefreshUploadPayload struct {
	UploadID string `json:"upload_id"`
}

type RefreshAssetPayload struct {
	MuxID string `json:"mux_id"`
}
