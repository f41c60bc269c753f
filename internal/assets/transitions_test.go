package assets_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"encodeflow/internal/assets"
	"encodeflow/internal/services"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[assets.Event]map[assets.Status]assets.Status{
		assets.EventSubmit: {
			assets.StatusInit:  assets.StatusStarted,
			assets.StatusDone:  assets.StatusStarted,
			assets.StatusError: assets.StatusStarted,
		},
		assets.EventComplete: {
			assets.StatusStarted: assets.StatusDone,
		},
		assets.EventFail: {
			assets.StatusInit:    assets.StatusError,
			assets.StatusStarted: assets.StatusError,
		},
	}

	for event, targets := range allowed {
		for _, from := range assets.AllStatuses() {
			got, err := assets.Transition(from, event)
			want, ok := targets[from]
			if ok {
				if err != nil {
					t.Fatalf("%s from %s: unexpected error %v", event, from, err)
				}
				if got != want {
					t.Fatalf("%s from %s: got %s want %s", event, from, got, want)
				}
				continue
			}
			if !errors.Is(err, services.ErrInvalidTransition) {
				t.Fatalf("%s from %s: expected ErrInvalidTransition, got %v", event, from, err)
			}
			if got != from {
				t.Fatalf("%s from %s: rejected transition changed state to %s", event, from, got)
			}
		}
	}
}

func TestTransitionRejectsUnknownEvent(t *testing.T) {
	if _, err := assets.Transition(assets.StatusInit, assets.Event("archive")); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRandomEventSequencesStayLegal(t *testing.T) {
	events := []assets.Event{assets.EventSubmit, assets.EventComplete, assets.EventFail}
	rng := rand.New(rand.NewSource(42))
	now := time.Unix(1700000000, 0)

	for run := 0; run < 200; run++ {
		asset := &assets.Asset{ID: 1, EncodingStatus: assets.StatusInit}
		for step := 0; step < 20; step++ {
			event := events[rng.Intn(len(events))]
			before := asset.EncodingStatus
			err := asset.Apply(event, now)
			if !asset.EncodingStatus.Valid() {
				t.Fatalf("reached illegal state %q", asset.EncodingStatus)
			}
			if err != nil && asset.EncodingStatus != before {
				t.Fatalf("rejected %s mutated state %s -> %s", event, before, asset.EncodingStatus)
			}
			if err == nil && !assets.CanApply(before, event) {
				t.Fatalf("accepted %s from %s", event, before)
			}
		}
	}
}

func TestApplyStampsStatusChangedAt(t *testing.T) {
	asset := &assets.Asset{ID: 3}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	if err := asset.Apply(assets.EventSubmit, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if asset.EncodingStatus != assets.StatusStarted {
		t.Fatalf("expected started, got %s", asset.EncodingStatus)
	}
	if !asset.StatusChangedAt.Equal(now) || asset.StatusChangedAt.Location() != time.UTC {
		t.Fatalf("unexpected StatusChangedAt %v", asset.StatusChangedAt)
	}

	stamp := asset.StatusChangedAt
	if err := asset.Apply(assets.EventSubmit, now.Add(time.Hour)); err == nil {
		t.Fatal("expected submit from started to be rejected")
	}
	if !asset.StatusChangedAt.Equal(stamp) {
		t.Fatal("rejected transition must not restamp")
	}
}

func TestApplyRejectsDerivedAssets(t *testing.T) {
	parent := int64(1)
	child := &assets.Asset{ID: 2, ParentID: &parent, Suffix: "mobile", EncodingStatus: assets.StatusInit}
	if err := child.Apply(assets.EventSubmit, time.Now()); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for derived asset, got %v", err)
	}
}
