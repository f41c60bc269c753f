package encoding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"encodeflow/internal/assets"
	"encodeflow/internal/encoding"
	"encodeflow/internal/encoding/locks"
	"encodeflow/internal/services"
	"encodeflow/internal/testsupport"
)

func TestConcurrentResubmitsStartOneJob(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	testsupport.SetState(t, h.store, root, assets.StatusError, "")

	entered := make(chan struct{})
	release := make(chan struct{})
	h.gateway.respond = func(call int, _ []byte) (string, error) {
		if call == 1 {
			close(entered)
			<-release
			return "media-1", nil
		}
		return "media-extra", nil
	}

	first := make(chan error, 1)
	go func() {
		_, err := h.manager.Resubmit(context.Background(), root.ID)
		first <- err
	}()
	<-entered

	// The first attempt is mid-flight; its started state is not persisted yet.
	second := make(chan error, 1)
	go func() {
		_, err := h.manager.Resubmit(context.Background(), root.ID)
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := <-first; err != nil {
		t.Fatalf("first Resubmit: %v", err)
	}
	if err := <-second; !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected second Resubmit to be rejected, got %v", err)
	}
	if got := h.gateway.calls(); got != 1 {
		t.Fatalf("expected one provider job, got %d", got)
	}
	persisted := h.reload(t, root.ID)
	if persisted.EncodingStatus != assets.StatusStarted || persisted.ExternalEncodingID != "media-1" {
		t.Fatalf("unexpected persisted asset %#v", persisted)
	}
}

func TestSubmitReloadsStaleCopy(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	stale := root.Clone()
	testsupport.SetState(t, h.store, root, assets.StatusStarted, "media-live")

	err := h.manager.Submit(context.Background(), stale)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from stored state, got %v", err)
	}
	if h.gateway.calls() != 0 {
		t.Fatal("provider must not be called")
	}
	if stale.EncodingStatus != assets.StatusStarted || stale.ExternalEncodingID != "media-live" {
		t.Fatalf("expected caller copy refreshed from store, got %#v", stale)
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (locks.Unlock, error) {
	return nil, errors.New("lock backend unavailable")
}

func TestCreateLockFailureLeavesInit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	gateway := &fakeGateway{}
	manager, err := encoding.NewManager(cfg, store, gateway, encoding.WithLocker(failingLocker{}))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	asset, err := manager.Create(context.Background(), newVideo("clip.mov"))
	if err == nil {
		t.Fatal("expected lock failure to surface")
	}
	if asset == nil || asset.ID == 0 {
		t.Fatalf("expected persisted root despite lock failure, got %#v", asset)
	}
	if gateway.calls() != 0 {
		t.Fatal("provider must not be called without the lock")
	}
	persisted, err := store.GetByID(context.Background(), asset.ID)
	if err != nil || persisted == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.EncodingStatus != assets.StatusInit {
		t.Fatalf("expected init, got %s", persisted.EncodingStatus)
	}
}
