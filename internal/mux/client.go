// Package mux - клиент Mux Video API поверх официального SDK и подпись ссылок на воспроизведение.
package mux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	muxgo "github.com/muxinc/mux-go"

	"muxlti/internal/domain"
)

const defaultTimeout = 30 * time.Second

// ErrNotFound - объект не найден в Mux (HTTP 404).
var ErrNotFound = errors.New("mux: not found")

type Config struct {
	TokenID     string
	TokenSecret string
	Timeout     time.Duration
}

// Сервисы SDK, которыми пользуется клиент.
type assetsService interface {
	GetAsset(assetID string, opts ...muxgo.APIOption) (muxgo.AssetResponse, error)
	DeleteAsset(assetID string, opts ...muxgo.APIOption) error
	CreateAssetTrack(assetID string, req muxgo.CreateTrackRequest, opts ...muxgo.APIOption) (muxgo.CreateTrackResponse, error)
	DeleteAssetTrack(assetID, trackID string, opts ...muxgo.APIOption) error
}

type uploadsService interface {
	CreateDirectUpload(req muxgo.CreateUploadRequest, opts ...muxgo.APIOption) (muxgo.UploadResponse, error)
	GetDirectUpload(uploadID string, opts ...muxgo.APIOption) (muxgo.UploadResponse, error)
}

type signingKeysService interface {
	CreateUrlSigningKey(opts ...muxgo.APIOption) (muxgo.SigningKeyResponse, error)
}

// Client ходит в Mux API с basic-авторизацией (token id / token secret).
type Client struct {
	assets  assetsService
	uploads uploadsService
	keys    signingKeysService
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.TokenID == "" || cfg.TokenSecret == "" {
		return nil, fmt.Errorf("missing mux token id or secret")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	api := muxgo.NewAPIClient(muxgo.NewConfiguration(
		muxgo.WithBasicAuth(cfg.TokenID, cfg.TokenSecret),
		muxgo.WithTimeout(timeout),
	))
	return &Client{
		assets:  api.AssetsApi,
		uploads: api.DirectUploadsApi,
		keys:    api.URLSigningKeysApi,
	}, nil
}

type DirectUpload struct {
	ID         string
	URL        string
	Status     string
	AssetID    string
	Timeout    int
	CorsOrigin string
}

type TrackRequest struct {
	URL            string
	Type           string
	TextType       string
	LanguageCode   string
	Name           string
	ClosedCaptions bool
}

type SigningKey struct {
	ID         string
	PrivateKey string
	CreatedAt  string
}

// CreateDirectUpload создает ссылку для загрузки видео напрямую из браузера.
// Ссылка действует ограниченное время и только с указанного origin.
// https://docs.mux.com/guides/video/upload-files-directly
func (c *Client) CreateDirectUpload(ctx context.Context, origin string, signed bool, validity time.Duration) (*DirectUpload, error) {
	if origin == "" {
		origin = "*"
	}
	policy := muxgo.PUBLIC
	if signed {
		policy = muxgo.SIGNED
	}

	resp, err := c.uploads.CreateDirectUpload(muxgo.CreateUploadRequest{
		CorsOrigin:       origin,
		NewAssetSettings: muxgo.CreateAssetRequest{PlaybackPolicy: []muxgo.PlaybackPolicy{policy}},
		Timeout:          int32(validity / time.Second),
	}, muxgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create direct upload: %w", wrapError(err))
	}
	return directUpload(resp.Data), nil
}

func (c *Client) GetDirectUpload(ctx context.Context, uploadID string) (*DirectUpload, error) {
	resp, err := c.uploads.GetDirectUpload(uploadID, muxgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get direct upload %s: %w", uploadID, wrapError(err))
	}
	return directUpload(resp.Data), nil
}

// GetAsset возвращает JSON ассета в формате API или nil, если ассет не найден.
// https://docs.mux.com/api-reference/video#operation/get-asset
func (c *Client) GetAsset(ctx context.Context, assetID string) (json.RawMessage, error) {
	resp, err := c.assets.GetAsset(assetID, muxgo.WithContext(ctx))
	if err != nil {
		err = wrapError(err)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode asset %s: %w", assetID, err)
	}
	return raw, nil
}

func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	if err := c.assets.DeleteAsset(assetID, muxgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete asset %s: %w", assetID, wrapError(err))
	}
	return nil
}

// CreateTrack добавляет дорожку (например, субтитры) к ассету.
// https://docs.mux.com/api-reference/video#operation/create-asset-track
func (c *Client) CreateTrack(ctx context.Context, assetID string, track TrackRequest) (*domain.Track, error) {
	resp, err := c.assets.CreateAssetTrack(assetID, muxgo.CreateTrackRequest{
		Url:            track.URL,
		Type:           track.Type,
		TextType:       track.TextType,
		LanguageCode:   track.LanguageCode,
		Name:           track.Name,
		ClosedCaptions: track.ClosedCaptions,
	}, muxgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create track on %s: %w", assetID, wrapError(err))
	}
	return &domain.Track{
		ID:             resp.Data.Id,
		Type:           resp.Data.Type,
		TextType:       resp.Data.TextType,
		LanguageCode:   resp.Data.LanguageCode,
		Name:           resp.Data.Name,
		ClosedCaptions: resp.Data.ClosedCaptions,
	}, nil
}

func (c *Client) DeleteTrack(ctx context.Context, assetID, trackID string) error {
	if err := c.assets.DeleteAssetTrack(assetID, trackID, muxgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete track %s on %s: %w", trackID, assetID, wrapError(err))
	}
	return nil
}

// CreateSigningKey создает ключ для подписи ссылок на воспроизведение.
func (c *Client) CreateSigningKey(ctx context.Context) (*SigningKey, error) {
	resp, err := c.keys.CreateUrlSigningKey(muxgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create signing key: %w", wrapError(err))
	}
	return &SigningKey{
		ID:         resp.Data.Id,
		PrivateKey: resp.Data.PrivateKey,
		CreatedAt:  resp.Data.CreatedAt,
	}, nil
}

func directUpload(u muxgo.Upload) *DirectUpload {
	return &DirectUpload{
		ID:         u.Id,
		URL:        u.Url,
		Status:     u.Status,
		AssetID:    u.AssetId,
		Timeout:    int(u.Timeout),
		CorsOrigin: u.CorsOrigin,
	}
}

// wrapError добавляет ErrNotFound к ответу 404, исходная ошибка SDK сохраняется.
func wrapError(err error) error {
	var notFound muxgo.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
