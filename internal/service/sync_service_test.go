package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"muxlti/internal/domain"
	"muxlti/internal/logger"
)

const testValidity = 48 * time.Hour

func newTestSyncService(store *memoryStore, api *fakeMux, storage *fakeStorage) *SyncService {
	return NewSyncService(api, store, storage, testValidity, logger.Nop())
}

func waitingTicket(t *testing.T, store *memoryStore, contextID, muxID string) *domain.UploadTicket {
	t.Helper()
	ctx := context.Background()
	c, err := store.GetOrCreate(ctx, contextID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	ticket, err := store.Create(ctx, muxID, c.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func TestUpdateWaitingUploadIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	api := newFakeMux()
	svc := newTestSyncService(store, api, &fakeStorage{})
	ctx := context.Background()

	waitingTicket(t, store, "ctx", "upload-1")
	api.setUpload("upload-1", "asset_created", "asset-1")

	for i := 0; i < 2; i++ {
		if err := svc.UpdateWaitingUpload(ctx, "upload-1"); err != nil {
			t.Fatalf("UpdateWaitingUpload: %v", err)
		}
	}

	if len(store.assets) != 1 {
		t.Fatalf("expected one asset, got %d", len(store.assets))
	}
	if store.uploads["upload-1"].Status != domain.UploadStatusCreated {
		t.Fatalf("ticket status not updated: %s", store.uploads["upload-1"].Status)
	}
	if asset := store.assets["asset-1"]; asset.LtiContextID != store.contexts["ctx"].ID {
		t.Fatalf("asset attached to wrong context: %+v", asset)
	}
}

func TestUpdateWaitingUploadKeepsOtherStatuses(t *testing.T) {
	for _, status := range []string{"waiting", "errored", "cancelled", "timed_out", "paused"} {
		t.Run(status, func(t *testing.T) {
			store := newMemoryStore()
			api := newFakeMux()
			svc := newTestSyncService(store, api, &fakeStorage{})

			waitingTicket(t, store, "ctx", "upload-1")
			api.setUpload("upload-1", status, "")

			if err := svc.UpdateWaitingUpload(context.Background(), "upload-1"); err != nil {
				t.Fatalf("UpdateWaitingUpload: %v", err)
			}
			if store.uploads["upload-1"].Status != domain.UploadStatusWaiting {
				t.Fatalf("status changed unexpectedly")
			}
			if len(store.assets) != 0 {
				t.Fatalf("asset created unexpectedly")
			}
		})
	}
}

func TestUpdateWaitingUploadIgnoresUnknownTicket(t *testing.T) {
	svc := newTestSyncService(newMemoryStore(), newFakeMux(), &fakeStorage{})

	if err := svc.UpdateWaitingUpload(context.Background(), "unknown"); err != nil {
		t.Fatalf("UpdateWaitingUpload(unknown): %v", err)
	}
}

func TestUpdateWaitingUploadsIsolatesFailures(t *testing.T) {
	store := newMemoryStore()
	api := newFakeMux()
	svc := newTestSyncService(store, api, &fakeStorage{})

	waitingTicket(t, store, "ctx", "upload-1")
	waitingTicket(t, store, "ctx", "upload-2")
	api.uploadErrors["upload-1"] = errRemote
	api.setUpload("upload-2", "asset_created", "asset-2")

	if err := svc.UpdateWaitingUploads(context.Background()); err != nil {
		t.Fatalf("UpdateWaitingUploads: %v", err)
	}
	if store.uploads["upload-2"].Status != domain.UploadStatusCreated {
		t.Fatalf("second ticket was not processed after first failed")
	}
	if store.uploads["upload-1"].Status != domain.UploadStatusWaiting {
		t.Fatalf("failed ticket changed status")
	}
}

func TestDeleteExpiredUploadsBoundary(t *testing.T) {
	store := newMemoryStore()
	svc := newTestSyncService(store, newFakeMux(), &fakeStorage{})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	lifetime := testValidity + domain.UploadExpiryMargin

	store.now = func() time.Time { return now.Add(-lifetime) }
	waitingTicket(t, store, "ctx", "at-boundary")
	store.now = func() time.Time { return now.Add(-lifetime + time.Second) }
	waitingTicket(t, store, "ctx", "fresh")
	store.now = func() time.Time { return now.Add(-lifetime - time.Hour) }
	waitingTicket(t, store, "ctx", "old")

	deleted, err := svc.DeleteExpiredUploads(context.Background())
	if err != nil {
		t.Fatalf("DeleteExpiredUploads: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted tickets, got %d", deleted)
	}
	if _, ok := store.uploads["fresh"]; !ok {
		t.Fatalf("fresh ticket was deleted")
	}
}

func TestSynchronizeRunsAllSteps(t *testing.T) {
	store := newMemoryStore()
	api := newFakeMux()
	storage := &fakeStorage{err: errRemote}
	svc := newTestSyncService(store, api, storage)

	store.now = func() time.Time { return time.Now().Add(-testValidity - time.Hour) }
	waitingTicket(t, store, "ctx", "expired")
	store.now = time.Now
	waitingTicket(t, store, "ctx", "upload-1")
	api.setUpload("upload-1", "asset_created", "asset-1")

	err := svc.Synchronize(context.Background())
	if err == nil || !strings.Contains(err.Error(), "delete expired subtitles") {
		t.Fatalf("expected subtitle cleanup error, got %v", err)
	}
	if _, ok := store.uploads["expired"]; ok {
		t.Fatalf("expired ticket was not deleted")
	}
	if store.uploads["upload-1"].Status != domain.UploadStatusCreated {
		t.Fatalf("waiting ticket was not updated")
	}
}

func TestHandleRefreshUpload(t *testing.T) {
	store := newMemoryStore()
	api := newFakeMux()
	svc := newTestSyncService(store, api, &fakeStorage{})

	waitingTicket(t, store, "ctx", "upload-1")
	api.setUpload("upload-1", "asset_created", "asset-1")

	if err := svc.HandleRefreshUpload(context.Background(), RefreshUploadPayload{UploadID: "upload-1"}); err != nil {
		t.Fatalf("HandleRefreshUpload: %v", err)
	}
	if _, ok := store.assets["asset-1"]; !ok {
		t.Fatalf("asset was not created")
	}
}

func TestSyncServiceStartStop(t *testing.T) {
	svc := newTestSyncService(newMemoryStore(), newFakeMux(), &fakeStorage{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.Stop()
}
