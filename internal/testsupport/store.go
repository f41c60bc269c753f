package testsupport

import (
	"context"
	"testing"

	"encodeflow/internal/assets"
	"encodeflow/internal/config"
)

// MustOpenStore opens an assets.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *assets.Store {
	t.Helper()

	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("assets.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRootAsset records a root video asset without triggering submission.
func NewRootAsset(t testing.TB, store *assets.Store, filename string) *assets.Asset {
	t.Helper()

	asset, err := store.CreateRoot(context.Background(), assets.NewRoot{
		Filename:    filename,
		ContentType: "video/quicktime",
		Size:        1024,
	})
	if err != nil {
		t.Fatalf("store.CreateRoot: %v", err)
	}
	return asset
}

// SetState forces a root into status with the given external id and persists it.
func SetState(t testing.TB, store *assets.Store, asset *assets.Asset, status assets.Status, externalID string) *assets.Asset {
	t.Helper()

	asset.EncodingStatus = status
	asset.ExternalEncodingID = externalID
	if err := store.Save(context.Background(), asset); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return asset
}
