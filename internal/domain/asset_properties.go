package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type PlaybackPolicy string

const (
	PlaybackPolicyPublic PlaybackPolicy = "public"
	PlaybackPolicySigned PlaybackPolicy = "signed"
)

type PlaybackID struct {
	ID     string         `json:"id"`
	Policy PlaybackPolicy `json:"policy"`
}

type Track struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	TextType       string  `json:"text_type,omitempty"`
	LanguageCode   string  `json:"language_code,omitempty"`
	Name           string  `json:"name,omitempty"`
	Status         string  `json:"status,omitempty"`
	ClosedCaptions bool    `json:"closed_captions,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
}

type AssetErrors struct {
	Type     string   `json:"type"`
	Messages []string `json:"messages"`
}

type muxAsset struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	CreatedAt   string       `json:"created_at"`
	Duration    float64      `json:"duration"`
	AspectRatio string       `json:"aspect_ratio"`
	PlaybackIDs []PlaybackID `json:"playback_ids"`
	Tracks      []Track      `json:"tracks"`
	Errors      *AssetErrors `json:"errors"`
}

// AssetProperties - неизменяемый снимок данных ассета, полученных из Mux API.
type AssetProperties struct {
	asset muxAsset
}

// NewAssetProperties разбирает JSON ассета ("data" из ответа Mux).
func NewAssetProperties(raw json.RawMessage) (*AssetProperties, error) {
	var asset muxAsset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return nil, fmt.Errorf("failed to decode mux asset: %w", err)
	}
	if asset.ID == "" {
		return nil, fmt.Errorf("mux asset without id")
	}
	return &AssetProperties{asset: asset}, nil
}

func (p *AssetProperties) ID() string     { return p.asset.ID }
func (p *AssetProperties) Status() string { return p.asset.Status }

// AspectRatio - соотношение сторон вида "16:9", пустое до обработки видео.
func (p *AssetProperties) AspectRatio() string { return p.asset.AspectRatio }

func (p *AssetProperties) Duration() time.Duration {
	return time.Duration(p.asset.Duration * float64(time.Second))
}

// CreatedAtTimestamp - Mux отдает created_at строкой с unix-временем.
func (p *AssetProperties) CreatedAtTimestamp() int64 {
	ts, err := strconv.ParseInt(p.asset.CreatedAt, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func (p *AssetProperties) CreatedAt() time.Time {
	return time.Unix(p.CreatedAtTimestamp(), 0).UTC()
}

// Playback возвращает первый playback id (публичный или подписанный) или nil.
func (p *AssetProperties) Playback() *PlaybackID {
	if len(p.asset.PlaybackIDs) == 0 {
		return nil
	}
	playback := p.asset.PlaybackIDs[0]
	return &playback
}

func (p *AssetProperties) PlaybackID() string {
	if playback := p.Playback(); playback != nil {
		return playback.ID
	}
	return ""
}

func (p *AssetProperties) IsPublic() bool {
	playback := p.Playback()
	return playback != nil && playback.Policy == PlaybackPolicyPublic
}

// SubtitleTracks возвращает только текстовые дорожки.
func (p *AssetProperties) SubtitleTracks() []Track {
	tracks := make([]Track, 0, len(p.asset.Tracks))
	for _, track := range p.asset.Tracks {
		if track.Type == "text" {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// ErrorMessages: у корректных видео поле errors равно null.
func (p *AssetProperties) ErrorMessages() []string {
	if p.asset.Errors == nil {
		return nil
	}
	return p.asset.Errors.Messages
}
