package mux

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"muxlti/internal/domain"
)

const (
	streamBaseURL = "https://stream.mux.com"
	imageBaseURL  = "https://image.mux.com"

	audienceVideo     = "v"
	audienceThumbnail = "t"
)

// ErrSigningDisabled - у ассета подписанная политика, но ключ подписи не настроен.
var ErrSigningDisabled = errors.New("mux: url signing key is not configured")

// Signer подписывает ссылки на воспроизведение и постеры (RS256 JWT с kid).
// https://docs.mux.com/guides/video/secure-video-playback
type Signer struct {
	keyID  string
	key    *rsa.PrivateKey
	expiry time.Duration
	now    func() time.Time
}

// NewSigner принимает приватный ключ в том виде, в котором его отдает Mux: PEM в base64.
func NewSigner(keyID, privateKeyBase64 string, expiry time.Duration) (*Signer, error) {
	if keyID == "" || privateKeyBase64 == "" {
		return nil, ErrSigningDisabled
	}
	pemBytes, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return &Signer{keyID: keyID, key: key, expiry: expiry, now: time.Now}, nil
}

// VideoURL возвращает HLS-ссылку. Пустая строка - у ассета нет playback id.
func (s *Signer) VideoURL(props *domain.AssetProperties) (string, error) {
	playbackID := props.PlaybackID()
	if playbackID == "" {
		return "", nil
	}
	publicURL := fmt.Sprintf("%s/%s.m3u8", streamBaseURL, playbackID)
	if props.IsPublic() {
		return publicURL + "?redundant_streams=true", nil
	}
	return s.SignURL(publicURL, jwt.MapClaims{
		"sub":               playbackID,
		"aud":               audienceVideo,
		"redundant_streams": true,
	})
}

func (s *Signer) PosterURL(props *domain.AssetProperties) (string, error) {
	playbackID := props.PlaybackID()
	if playbackID == "" {
		return "", nil
	}
	publicURL := fmt.Sprintf("%s/%s/thumbnail.jpg", imageBaseURL, playbackID)
	if props.IsPublic() {
		return publicURL, nil
	}
	return s.SignURL(publicURL, jwt.MapClaims{
		"sub": playbackID,
		"aud": audienceThumbnail,
	})
}

// SignURL добавляет к ссылке ?token=<jwt>. Другие параметры в подписанной ссылке недопустимы.
func (s *Signer) SignURL(publicURL string, claims jwt.MapClaims) (string, error) {
	if s == nil || s.key == nil {
		return "", ErrSigningDisabled
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = s.now().Add(s.expiry).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.keyID
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	return publicURL + "?token=" + signed, nil
}
