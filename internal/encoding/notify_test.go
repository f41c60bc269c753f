package encoding_test

import (
	"context"
	"testing"

	"encodeflow/internal/assets"
	"encodeflow/internal/notifications"
	"encodeflow/internal/services"
)

func newVideo(filename string) assets.NewRoot {
	return assets.NewRoot{Filename: filename, ContentType: "video/quicktime", Size: 4096}
}

func TestNotificationsFollowJobOutcomes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := startedRoot(t, h, "done.mov", "m-done")
	if err := h.manager.ProcessCallback(ctx, callback("m-done", "Finished")); err != nil {
		t.Fatalf("success callback: %v", err)
	}
	failed := startedRoot(t, h, "failed.mov", "m-failed")
	if err := h.manager.ProcessCallback(ctx, callback("m-failed", "Error")); err != nil {
		t.Fatalf("failure callback: %v", err)
	}
	// Repeated delivery must not alert twice.
	if err := h.manager.ProcessCallback(ctx, callback("m-done", "Finished")); err != nil {
		t.Fatalf("duplicate callback: %v", err)
	}

	events := h.notifier.Events()
	if len(events) != 2 {
		t.Fatalf("expected two notifications, got %+v", events)
	}
	if events[0].Event != notifications.EventEncodingCompleted || events[0].Payload["assetID"] != done.ID || events[0].Payload["derived"] != 2 {
		t.Fatalf("unexpected completion event: %+v", events[0])
	}
	if events[1].Event != notifications.EventEncodingFailed || events[1].Payload["assetID"] != failed.ID || events[1].Payload["status"] != "Error" {
		t.Fatalf("unexpected failure event: %+v", events[1])
	}
}

func TestSubmissionFailureNotifies(t *testing.T) {
	h := newHarness(t)
	h.gateway.respond = func(int, []byte) (string, error) {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "connection refused", nil)
	}

	root, err := h.manager.Create(context.Background(), newVideo("clip.mov"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	events := h.notifier.Events()
	if len(events) != 1 || events[0].Event != notifications.EventSubmissionFailed {
		t.Fatalf("expected one submission failure event, got %+v", events)
	}
	if events[0].Payload["filename"] != "clip.mov" || events[0].Payload["assetID"] != root.ID {
		t.Fatalf("unexpected payload: %+v", events[0].Payload)
	}
}

func TestSuccessfulSubmissionDoesNotNotify(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager.Create(context.Background(), newVideo("clip.mov")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if events := h.notifier.Events(); len(events) != 0 {
		t.Fatalf("expected no notifications, got %+v", events)
	}
}
