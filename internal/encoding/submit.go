package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"encodeflow/internal/assets"
	"encodeflow/internal/encodingcom"
	"encodeflow/internal/logging"
	"encodeflow/internal/notifications"
	"encodeflow/internal/services"
)

// Create records a new root upload and, for video content, submits it
// immediately. Non-video roots stay in init.
func (m *Manager) Create(ctx context.Context, in assets.NewRoot) (*assets.Asset, error) {
	ctx, logger := m.operationContext(ctx, "create", 0)
	asset, err := m.store.CreateRoot(ctx, in)
	if err != nil {
		return nil, err
	}
	logger = logger.With(logging.AssetID(asset.ID))
	if !asset.IsVideo() {
		logger.Info("asset is not a video; skipping encoding",
			logging.String("content_type", asset.ContentType),
			logging.String("filename", asset.Filename),
		)
		return asset, nil
	}
	logger.Info("video asset created", logging.String("filename", asset.Filename))
	if err := m.Submit(ctx, asset); err != nil {
		return asset, err
	}
	return asset, nil
}

// Resubmit is the manual retry entry point for a root in done or error.
func (m *Manager) Resubmit(ctx context.Context, id int64) (*assets.Asset, error) {
	asset, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, services.Wrap(services.ErrNotFound, "encoding", "resubmit", fmt.Sprintf("asset %d", id), nil)
	}
	if !asset.IsRoot() {
		return asset, services.Wrap(services.ErrValidation, "encoding", "resubmit",
			fmt.Sprintf("asset %d is a derived %q record", asset.ID, asset.Suffix), nil)
	}
	return asset, m.Submit(ctx, asset)
}

// Submit starts a provider job for a root asset. Derived assets are ignored.
//
// The asset always ends persisted in one of two shapes: started with a fresh
// media id, or error without one. Transport and request-building failures are
// absorbed into the error state and logged; a rejected transition or a
// malformed provider acknowledgement is returned. A persisted asset is
// reloaded once the lock is held, so the transition is checked against the
// stored state rather than the caller's copy.
func (m *Manager) Submit(ctx context.Context, asset *assets.Asset) error {
	if asset == nil {
		return services.Wrap(services.ErrValidation, "encoding", "submit", "asset is nil", nil)
	}
	ctx, logger := m.operationContext(ctx, "submit", asset.ID)
	if !asset.IsRoot() {
		logger.Debug("derived asset does not trigger encoding", logging.String("suffix", asset.Suffix))
		return nil
	}

	unlock, err := m.lock(ctx, asset.ID)
	if err != nil {
		logging.WarnWithContext(logger, "could not acquire asset lock", "encoding_lock_failed",
			logging.Error(err),
			logging.String("status", string(asset.EncodingStatus)),
			logging.String(logging.FieldErrorHint, "check locking backend; retry with encodeflow resubmit"),
			logging.String(logging.FieldImpact, "submission skipped; asset left in its current state"),
		)
		return err
	}
	defer unlock()

	// Re-read under the lock: a concurrent submission may already have started a job.
	if asset.ID > 0 {
		current, err := m.store.GetByID(ctx, asset.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return services.Wrap(services.ErrNotFound, "encoding", "submit", fmt.Sprintf("asset %d", asset.ID), nil)
		}
		*asset = *current
	}

	return m.submitLocked(ctx, logger, asset)
}

func (m *Manager) submitLocked(ctx context.Context, logger *slog.Logger, asset *assets.Asset) (err error) {
	current := asset.EncodingStatus
	if current == "" {
		current = assets.StatusInit
	}
	if _, terr := assets.Transition(current, assets.EventSubmit); terr != nil {
		logging.ErrorWithContext(logger, "submission rejected", "encoding_submit_rejected",
			logging.String("status", string(current)),
			logging.Error(terr),
			logging.String(logging.FieldErrorHint, "wait for the outstanding job's callback before resubmitting"),
		)
		return terr
	}

	previousID := asset.ExternalEncodingID
	asset.ExternalEncodingID = ""
	if err := asset.Apply(assets.EventSubmit, m.now()); err != nil {
		asset.ExternalEncodingID = previousID
		return err
	}

	var submitErr error
	defer func() {
		if asset.ExternalEncodingID == "" {
			if ferr := asset.Apply(assets.EventFail, m.now()); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		if serr := m.store.Save(context.WithoutCancel(ctx), asset); serr != nil {
			logging.ErrorWithContext(logger, "failed to persist submission outcome", "encoding_persist_failed",
				logging.String("status", string(asset.EncodingStatus)),
				logging.Error(serr),
			)
			err = errors.Join(err, serr)
			return
		}
		if asset.EncodingStatus == assets.StatusError {
			reason := "submission aborted"
			if submitErr != nil {
				reason = submitErr.Error()
			}
			m.notify(ctx, logger, asset, notifications.EventSubmissionFailed, notifications.Payload{"error": reason})
		}
	}()

	mediaID, submitErr := m.sendRequest(ctx, asset)
	if submitErr != nil {
		logging.WarnWithContext(logger, "encoding submission failed", "encoding_submit_failed",
			logging.Error(submitErr),
			logging.ErrorKind(services.Kind(submitErr)),
			logging.String(logging.FieldErrorHint, submitHint(submitErr)),
			logging.String(logging.FieldImpact, "asset marked error; resubmit once the cause is fixed"),
		)
		if services.Escalates(submitErr) {
			return submitErr
		}
		return nil
	}

	asset.ExternalEncodingID = mediaID
	logger.Info("encoding job submitted",
		logging.MediaID(mediaID),
		logging.String("filename", asset.Filename),
	)
	if previousID != "" {
		logger.Debug("replaced previous media id", logging.String("previous_media_id", previousID))
	}
	return nil
}

func (m *Manager) sendRequest(ctx context.Context, asset *assets.Asset) (string, error) {
	source, err := m.resolver.SourceURL(asset)
	if err != nil {
		return "", err
	}
	destinations, err := m.resolver.Destinations(asset, m.encoding)
	if err != nil {
		return "", err
	}
	doc, err := encodingcom.BuildRequest(encodingcom.RequestInput{
		Credentials:  m.credentials,
		NotifyURL:    m.notifyURL,
		SourceURL:    source,
		Renditions:   m.encoding.Renditions,
		Thumbnails:   m.encoding.Thumbnails,
		Destinations: destinations,
	})
	if err != nil {
		return "", err
	}
	return m.gateway.Submit(ctx, doc)
}

func submitHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTransport):
		return "check provider.endpoint reachability and provider.request_timeout"
	case errors.Is(err, services.ErrMalformedProviderResponse):
		return "check provider credentials; the provider did not return a MediaID"
	case errors.Is(err, services.ErrValidation):
		return "check storage and encoding configuration"
	default:
		return "check logs for details"
	}
}
