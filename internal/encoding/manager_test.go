package encoding_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"encodeflow/internal/assets"
	"encodeflow/internal/config"
	"encodeflow/internal/encoding"
	"encodeflow/internal/notifications"
	"encodeflow/internal/services"
	"encodeflow/internal/testsupport"
)

type fakeGateway struct {
	mu      sync.Mutex
	docs    [][]byte
	respond func(call int, doc []byte) (string, error)
}

func (g *fakeGateway) Submit(_ context.Context, doc []byte) (string, error) {
	g.mu.Lock()
	g.docs = append(g.docs, doc)
	call := len(g.docs)
	respond := g.respond
	g.mu.Unlock()
	if respond == nil {
		return fmt.Sprintf("media-%d", call), nil
	}
	return respond(call, doc)
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.docs)
}

type harness struct {
	cfg      *config.Config
	store    *assets.Store
	gateway  *fakeGateway
	notifier *notifications.Recorder
	manager  *encoding.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	gateway := &fakeGateway{}
	notifier := &notifications.Recorder{}
	manager, err := encoding.NewManager(cfg, store, gateway, encoding.WithNotifier(notifier))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &harness{cfg: cfg, store: store, gateway: gateway, notifier: notifier, manager: manager}
}

func (h *harness) reload(t *testing.T, id int64) *assets.Asset {
	t.Helper()
	asset, err := h.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if asset == nil {
		t.Fatalf("asset %d missing", id)
	}
	return asset
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := encoding.NewManager(cfg, nil, &fakeGateway{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := encoding.NewManager(nil, nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateSubmitsVideoAndRecordsMediaID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	asset, err := h.manager.Create(ctx, assets.NewRoot{Filename: "clip.mov", ContentType: "video/quicktime", Size: 4096})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if asset.EncodingStatus != assets.StatusStarted || asset.ExternalEncodingID != "media-1" {
		t.Fatalf("unexpected in-memory asset %#v", asset)
	}

	persisted := h.reload(t, asset.ID)
	if persisted.EncodingStatus != assets.StatusStarted || persisted.ExternalEncodingID != "media-1" {
		t.Fatalf("unexpected persisted asset %#v", persisted)
	}
	if persisted.StatusChangedAt.IsZero() {
		t.Fatal("expected status change timestamp")
	}

	if h.gateway.calls() != 1 {
		t.Fatalf("expected one provider call, got %d", h.gateway.calls())
	}
	doc := string(h.gateway.docs[0])
	partition := fmt.Sprintf("%04d/%04d", asset.ID/10000, asset.ID%10000)
	for _, fragment := range []string{
		"<action>AddMedia</action>",
		"<userid>test-user</userid>",
		"<notify>https://app.example.com/encoding/callback</notify>",
		"<source>http://test-bucket.s3.amazonaws.com/" + partition + "/clip.mov</source>",
		"<destination>http://test-bucket.s3.amazonaws.com/" + partition + "/clip_mobile.mp4?acl=public-read</destination>",
		"<output>thumbnail</output><width>120</width><height>90</height>",
	} {
		if !strings.Contains(doc, fragment) {
			t.Fatalf("expected %q in request:\n%s", fragment, doc)
		}
	}
}

func TestCreateSkipsNonVideo(t *testing.T) {
	h := newHarness(t)
	asset, err := h.manager.Create(context.Background(), assets.NewRoot{Filename: "notes.pdf", ContentType: "application/pdf", Size: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if asset.EncodingStatus != assets.StatusInit {
		t.Fatalf("expected init, got %s", asset.EncodingStatus)
	}
	if h.gateway.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", h.gateway.calls())
	}
}

func TestSubmitTransportFailureLeavesErrorWithoutID(t *testing.T) {
	h := newHarness(t)
	var statusDuringCall assets.Status
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	h.gateway.respond = func(int, []byte) (string, error) {
		current := h.reload(t, root.ID)
		statusDuringCall = current.EncodingStatus
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "post request", errors.New("connection reset"))
	}

	if err := h.manager.Submit(context.Background(), root); err != nil {
		t.Fatalf("transport failure should be absorbed, got %v", err)
	}
	if statusDuringCall != assets.StatusInit {
		t.Fatalf("expected record untouched on disk during the call, saw %s", statusDuringCall)
	}
	if root.EncodingStatus != assets.StatusError {
		t.Fatalf("expected in-memory state started before the call to end as error, got %s", root.EncodingStatus)
	}
	persisted := h.reload(t, root.ID)
	if persisted.EncodingStatus != assets.StatusError || persisted.ExternalEncodingID != "" {
		t.Fatalf("expected error without id, got %#v", persisted)
	}
}

func TestSubmitMalformedResponseEscalatesAndPersistsError(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	h.gateway.respond = func(int, []byte) (string, error) {
		return "", services.Wrap(services.ErrMalformedProviderResponse, "encodingcom", "submit", "response has no MediaID", nil)
	}

	err := h.manager.Submit(context.Background(), root)
	if !errors.Is(err, services.ErrMalformedProviderResponse) {
		t.Fatalf("expected malformed provider response, got %v", err)
	}
	persisted := h.reload(t, root.ID)
	if persisted.EncodingStatus != assets.StatusError || persisted.ExternalEncodingID != "" {
		t.Fatalf("expected error without id, got %#v", persisted)
	}
}

func TestSubmitBuildFailureIsReconciled(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	manager, err := encoding.NewManager(h.cfg, h.store, h.gateway, encoding.WithResolver(brokenResolver{}))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := manager.Submit(context.Background(), root); err != nil {
		t.Fatalf("build failure should be absorbed, got %v", err)
	}
	if h.gateway.calls() != 0 {
		t.Fatal("provider must not be called when the request cannot be built")
	}
	persisted := h.reload(t, root.ID)
	if persisted.EncodingStatus != assets.StatusError {
		t.Fatalf("expected error, got %s", persisted.EncodingStatus)
	}
}

type brokenResolver struct{}

func (brokenResolver) SourceURL(*assets.Asset) (string, error) {
	return "http://example.com/source.mov", nil
}

func (brokenResolver) Destinations(*assets.Asset, config.Encoding) (map[string]string, error) {
	return map[string]string{}, nil
}

func TestSubmitPanicStillPersistsError(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	h.gateway.respond = func(int, []byte) (string, error) {
		panic("gateway exploded")
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = h.manager.Submit(context.Background(), root)
	}()

	persisted := h.reload(t, root.ID)
	if persisted.EncodingStatus != assets.StatusError || persisted.ExternalEncodingID != "" {
		t.Fatalf("expected error without id after panic, got %#v", persisted)
	}
}

func TestResubmitClearsPreviousID(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	testsupport.SetState(t, h.store, root, assets.StatusDone, "media-old")

	h.gateway.respond = func(int, []byte) (string, error) {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "timeout", context.DeadlineExceeded)
	}
	resubmitted, err := h.manager.Resubmit(context.Background(), root.ID)
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	if resubmitted.ExternalEncodingID != "" {
		t.Fatalf("expected cleared id on returned asset, got %q", resubmitted.ExternalEncodingID)
	}
	persisted := h.reload(t, root.ID)
	if persisted.ExternalEncodingID != "" || persisted.EncodingStatus != assets.StatusError {
		t.Fatalf("stale id survived failed resubmission: %#v", persisted)
	}

	found, err := h.store.FindByExternalEncodingID(context.Background(), "media-old")
	if err != nil || found != nil {
		t.Fatalf("old media id must no longer resolve, got %#v %v", found, err)
	}
}

func TestSubmitTwiceReplacesMediaID(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	testsupport.SetState(t, h.store, root, assets.StatusError, "")

	var seen []string
	h.gateway.respond = func(call int, _ []byte) (string, error) {
		seen = append(seen, root.ExternalEncodingID)
		return fmt.Sprintf("media-%d", call), nil
	}
	if err := h.manager.Submit(context.Background(), root); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := h.manager.HandleCallback(context.Background(), root, callback(root.ExternalEncodingID, "Finished")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if err := h.manager.Submit(context.Background(), root); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	for i, id := range seen {
		if id != "" {
			t.Fatalf("attempt %d saw stale id %q during the provider call", i+1, id)
		}
	}
	persisted := h.reload(t, root.ID)
	if persisted.ExternalEncodingID != "media-2" || persisted.EncodingStatus != assets.StatusStarted {
		t.Fatalf("unexpected persisted asset %#v", persisted)
	}
}

func TestSubmitRejectsOutstandingJob(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	testsupport.SetState(t, h.store, root, assets.StatusStarted, "media-live")

	err := h.manager.Submit(context.Background(), root)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if h.gateway.calls() != 0 {
		t.Fatal("provider must not be called for a rejected submission")
	}
	persisted := h.reload(t, root.ID)
	if persisted.ExternalEncodingID != "media-live" || persisted.EncodingStatus != assets.StatusStarted {
		t.Fatalf("rejected submission mutated the record: %#v", persisted)
	}
}

func TestSubmitIgnoresDerivedAssets(t *testing.T) {
	h := newHarness(t)
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	parent := root.ID
	child := &assets.Asset{ParentID: &parent, Suffix: "mobile", Filename: "clip_mobile.mp4", ContentType: "video/mp4"}
	if err := h.store.Save(context.Background(), child); err != nil {
		t.Fatalf("Save child: %v", err)
	}
	if err := h.manager.Submit(context.Background(), child); err != nil {
		t.Fatalf("Submit derived: %v", err)
	}
	if h.gateway.calls() != 0 {
		t.Fatal("derived assets must never trigger encoding")
	}
}

func TestResubmitMissingAndDerived(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager.Resubmit(context.Background(), 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	root := testsupport.NewRootAsset(t, h.store, "clip.mov")
	testsupport.SetState(t, h.store, root, assets.StatusStarted, "m")
	if err := h.manager.HandleCallback(context.Background(), root, callback("m", "Finished")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	children, _ := h.store.Children(context.Background(), root.ID)
	if _, err := h.manager.Resubmit(context.Background(), children[0].ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for derived resubmit, got %v", err)
	}
}

func TestStuckJobsUsesThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	now := time.Now()
	clock := func() time.Time { return now }
	manager, err := encoding.NewManager(cfg, store, &fakeGateway{}, encoding.WithClock(clock))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	old := testsupport.NewRootAsset(t, store, "old.mov")
	if err := manager.Submit(context.Background(), old); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	now = now.Add(cfg.StuckThreshold() + time.Minute)
	fresh := testsupport.NewRootAsset(t, store, "fresh.mov")
	if err := manager.Submit(context.Background(), fresh); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stuck, err := manager.StuckJobs(context.Background())
	if err != nil {
		t.Fatalf("StuckJobs: %v", err)
	}
	if len(stuck) != 1 || stuck[0].ID != old.ID {
		t.Fatalf("expected only the old job to be stuck, got %#v", stuck)
	}
}
