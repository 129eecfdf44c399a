package mux

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"
)

// SignatureHeader - заголовок с подписью вебхука.
const SignatureHeader = "Mux-Signature"

var signaturePattern = regexp.MustCompile(`^t=([0-9]+),v1=([a-z0-9]+)$`)

// WebhookVerifier проверяет подпись вебхука Mux.
// Пример заголовка: t=1646396487,v1=f609be479abf8951a541e48351662507e720824253220b8c3178c10828af6a1f
// https://docs.mux.com/guides/video/verify-webhook-signatures
type WebhookVerifier struct {
	secret []byte
	// Tolerance ограничивает возраст метки времени. 0 - без проверки.
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

func (v *WebhookVerifier) Verify(header string, body []byte) bool {
	if len(v.secret) == 0 {
		return false
	}
	match := signaturePattern.FindStringSubmatch(header)
	if match == nil {
		return false
	}
	timestamp, signature := match[1], match[2]

	if v.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return false
		}
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	reference := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(reference), []byte(signature))
}
