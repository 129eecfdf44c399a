package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sort"
	"sync"
	"time"

	"muxlti/internal/domain"
	"muxlti/internal/mux"
	"muxlti/internal/repository"
)

// memoryStore реализует хранилища контекстов, ассетов и тикетов поверх map.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	contexts map[string]domain.LtiContext
	assets   map[string]domain.Asset
	uploads  map[string]domain.UploadTicket
	now      func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contexts: map[string]domain.LtiContext{},
		assets:   map[string]domain.Asset{},
		uploads:  map[string]domain.UploadTicket{},
		now:      time.Now,
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) GetOrCreate(_ context.Context, contextID string) (*domain.LtiContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contexts[contextID]
	if !ok {
		c = domain.LtiContext{ID: s.id(), ContextID: contextID}
		s.contexts[contextID] = c
	}
	return &c, nil
}

func (s *memoryStore) GetByContextID(_ context.Context, contextID string) (*domain.LtiContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contexts[contextID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *memoryStore) contextByID(id int64) string {
	for _, c := range s.contexts {
		if c.ID == id {
			return c.ContextID
		}
	}
	return ""
}

// addAsset создает ассет в контексте contextID.
func (s *memoryStore) addAsset(contextID, muxID string) domain.Asset {
	c, _ := s.GetOrCreate(context.Background(), contextID)
	s.mu.Lock()
	defer s.mu.Unlock()
	asset := domain.Asset{ID: s.id(), MuxID: muxID, LtiContextID: c.ID, ContextID: contextID}
	s.assets[muxID] = asset
	return asset
}

func (s *memoryStore) ListVisible(_ context.Context, pattern string) ([]domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var re *regexp.Regexp
	if pattern != "" {
		re = regexp.MustCompile(pattern)
	}
	assets := []domain.Asset{}
	for _, a := range s.assets {
		a.ContextID = s.contextByID(a.LtiContextID)
		if re == nil || re.MatchString(a.ContextID) {
			assets = append(assets, a)
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID > assets[j].ID })
	return assets, nil
}

func (s *memoryStore) GetVisible(ctx context.Context, pattern, muxID string) (*domain.Asset, error) {
	assets, err := s.ListVisible(ctx, pattern)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if a.MuxID == muxID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for muxID, a := range s.assets {
		if a.ID == id {
			delete(s.assets, muxID)
		}
	}
	return nil
}

func (s *memoryStore) Create(_ context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.UploadTicket{
		ID:           s.id(),
		MuxID:        muxID,
		LtiContextID: ltiContextID,
		Status:       domain.UploadStatusWaiting,
		CreatedAt:    s.now(),
	}
	s.uploads[muxID] = t
	return &t, nil
}

func (s *memoryStore) Get(_ context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.uploads[muxID]
	if !ok || t.LtiContextID != ltiContextID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memoryStore) GetWaiting(_ context.Context, muxID string) (*domain.UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.uploads[muxID]
	if !ok || t.Status != domain.UploadStatusWaiting {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *memoryStore) ListByStatus(_ context.Context, status domain.UploadStatus) ([]domain.UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets := []domain.UploadTicket{}
	for _, t := range s.uploads {
		if t.Status == status {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

func (s *memoryStore) CompleteUpload(_ context.Context, ticket *domain.UploadTicket, assetMuxID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.assets[assetMuxID]
	if !exists {
		s.assets[assetMuxID] = domain.Asset{ID: s.id(), MuxID: assetMuxID, LtiContextID: ticket.LtiContextID}
	}
	t := s.uploads[ticket.MuxID]
	t.Status = domain.UploadStatusCreated
	s.uploads[ticket.MuxID] = t
	ticket.Status = domain.UploadStatusCreated
	return !exists, nil
}

func (s *memoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for muxID, t := range s.uploads {
		if !t.CreatedAt.After(cutoff) {
			delete(s.uploads, muxID)
			n++
		}
	}
	return n, nil
}

// fakeMux имитирует Mux API для ассетов и прямых загрузок.
type fakeMux struct {
	mu             sync.Mutex
	assets         map[string]map[string]interface{}
	uploads        map[string]*mux.DirectUpload
	uploadErrors   map[string]error
	getAssetCalls  int
	deletedAssets  []string
	deletedTracks  []string
	createdTracks  []mux.TrackRequest
	createdUploads int
}

func newFakeMux() *fakeMux {
	return &fakeMux{
		assets:       map[string]map[string]interface{}{},
		uploads:      map[string]*mux.DirectUpload{},
		uploadErrors: map[string]error{},
	}
}

func (f *fakeMux) addAsset(id string, tracks ...domain.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[id] = map[string]interface{}{
		"id":           id,
		"status":       "ready",
		"created_at":   "1600000000",
		"aspect_ratio": "16:9",
		"playback_ids": []map[string]string{{"id": "pb-" + id, "policy": "public"}},
		"tracks":       tracks,
	}
}

func (f *fakeMux) GetAsset(_ context.Context, assetID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAssetCalls++
	asset, ok := f.assets[assetID]
	if !ok {
		return nil, nil
	}
	return json.Marshal(asset)
}

func (f *fakeMux) DeleteAsset(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[assetID]; !ok {
		return mux.ErrNotFound
	}
	delete(f.assets, assetID)
	f.deletedAssets = append(f.deletedAssets, assetID)
	return nil
}

func (f *fakeMux) CreateTrack(_ context.Context, assetID string, track mux.TrackRequest) (*domain.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[assetID]
	if !ok {
		return nil, mux.ErrNotFound
	}
	created := domain.Track{
		ID:           "track-" + track.LanguageCode,
		Type:         track.Type,
		TextType:     track.TextType,
		LanguageCode: track.LanguageCode,
		Name:         track.Name,
	}
	tracks, _ := asset["tracks"].([]domain.Track)
	asset["tracks"] = append(tracks, created)
	f.createdTracks = append(f.createdTracks, track)
	return &created, nil
}

func (f *fakeMux) DeleteTrack(_ context.Context, assetID, trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[assetID]
	if !ok {
		return mux.ErrNotFound
	}
	tracks, _ := asset["tracks"].([]domain.Track)
	kept := tracks[:0]
	found := false
	for _, t := range tracks {
		if t.ID == trackID {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return mux.ErrNotFound
	}
	asset["tracks"] = kept
	f.deletedTracks = append(f.deletedTracks, trackID)
	return nil
}

func (f *fakeMux) CreateDirectUpload(_ context.Context, origin string, _ bool, _ time.Duration) (*mux.DirectUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdUploads++
	upload := &mux.DirectUpload{
		ID:         "upload-" + string(rune('a'+f.createdUploads-1)),
		URL:        "https://storage.example/upload",
		Status:     string(domain.UploadStatusWaiting),
		CorsOrigin: origin,
	}
	f.uploads[upload.ID] = upload
	return upload, nil
}

func (f *fakeMux) GetDirectUpload(_ context.Context, uploadID string) (*mux.DirectUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErrors[uploadID]; err != nil {
		return nil, err
	}
	upload, ok := f.uploads[uploadID]
	if !ok {
		return nil, mux.ErrNotFound
	}
	cp := *upload
	return &cp, nil
}

func (f *fakeMux) setUpload(id, status, assetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[id] = &mux.DirectUpload{ID: id, Status: status, AssetID: assetID}
}

type fakeStorage struct {
	saved   int
	expired int
	err     error
}

func (s *fakeStorage) Save(_ context.Context, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.saved++
	return "https://bucket.example/mux/subtitles/file", nil
}

func (s *fakeStorage) DeleteExpired(context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.expired, nil
}

type dispatched struct {
	name    string
	payload interface{}
}

type recordingDispatcher struct {
	tasks []dispatched
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, name string, payload interface{}) error {
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, dispatched{name: name, payload: payload})
	return nil
}

var errRemote = errors.New("remote failure")
