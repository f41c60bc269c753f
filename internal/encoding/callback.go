package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"encodeflow/internal/assets"
	"encodeflow/internal/encodingcom"
	"encodeflow/internal/logging"
	"encodeflow/internal/notifications"
	"encodeflow/internal/services"
)

// ResolveJob returns the root asset tracking providerJobID. An unknown id is
// an orphan notification: it is logged and yields nil, nil.
func (m *Manager) ResolveJob(ctx context.Context, providerJobID string) (*assets.Asset, error) {
	ctx, logger := m.operationContext(ctx, "resolve", 0)
	providerJobID = strings.TrimSpace(providerJobID)
	if providerJobID == "" {
		return nil, services.Wrap(services.ErrMalformedCallback, "encoding", "resolve", "media id is empty", nil)
	}
	asset, err := m.store.FindByExternalEncodingID(ctx, providerJobID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		logging.WarnWithContext(logger, "callback for unknown media id", "encoding_callback_orphan",
			logging.MediaID(providerJobID),
			logging.ErrorKind(services.Kind(services.ErrUnresolvedCallback)),
			logging.String(logging.FieldErrorHint, "the job was resubmitted or belongs to another instance"),
			logging.String(logging.FieldImpact, "notification ignored"),
		)
		return nil, nil
	}
	return asset, nil
}

// HandleCallback applies a provider notification to asset.
//
// A missing status is ErrMalformedCallback with no state change. A status
// other than the success sentinel moves the job to error. Success
// materializes every configured rendition and thumbnail before the job is
// marked done, so done is never observable without its derived records.
//
// HandleCallback takes no lock. Callers must hold locks.AssetKey(asset.ID)
// or go through ProcessCallback, which resolves, locks and re-reads first.
func (m *Manager) HandleCallback(ctx context.Context, asset *assets.Asset, payload encodingcom.CallbackPayload) error {
	if asset == nil {
		return services.Wrap(services.ErrValidation, "encoding", "callback", "asset is nil", nil)
	}
	ctx, logger := m.operationContext(ctx, "callback", asset.ID)
	logger = logger.With(logging.MediaID(payload.MediaID))

	if !payload.HasStatus {
		return services.Wrap(services.ErrMalformedCallback, "encoding", "callback",
			fmt.Sprintf("notification for media id %q has no status", payload.MediaID), nil)
	}

	if payload.Status != m.successStatus {
		return m.recordProviderFailure(ctx, logger, asset, payload.Status)
	}

	if err := m.checkTransition(asset, assets.EventComplete); err != nil {
		return err
	}

	derived, err := m.Materialize(ctx, asset)
	if err != nil {
		logging.ErrorWithContext(logger, "materialization failed", "encoding_materialize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the asset database; resubmit once resolved"),
		)
		if ferr := asset.Apply(assets.EventFail, m.now()); ferr != nil {
			return errors.Join(err, ferr)
		}
		if serr := m.store.Save(context.WithoutCancel(ctx), asset); serr != nil {
			return errors.Join(err, serr)
		}
		m.notify(ctx, logger, asset, notifications.EventEncodingFailed, notifications.Payload{
			"mediaID": asset.ExternalEncodingID,
			"status":  "materialization failed",
		})
		return err
	}

	if err := asset.Apply(assets.EventComplete, m.now()); err != nil {
		return err
	}
	if err := m.store.Save(ctx, asset); err != nil {
		return err
	}
	logger.Info("encoding completed", logging.Int("derived", len(derived)))
	m.notify(ctx, logger, asset, notifications.EventEncodingCompleted, notifications.Payload{
		"mediaID": asset.ExternalEncodingID,
		"derived": len(derived),
	})
	return nil
}

func (m *Manager) recordProviderFailure(ctx context.Context, logger *slog.Logger, asset *assets.Asset, status string) error {
	if err := asset.Apply(assets.EventFail, m.now()); err != nil {
		return err
	}
	if err := m.store.Save(ctx, asset); err != nil {
		return err
	}
	logging.WarnWithContext(logger, "provider reported encoding failure", "encoding_provider_failed",
		logging.String("provider_status", status),
		logging.String(logging.FieldErrorHint, "inspect the job in the provider dashboard"),
		logging.String(logging.FieldImpact, "asset marked error; no renditions were recorded"),
	)
	m.notify(ctx, logger, asset, notifications.EventEncodingFailed, notifications.Payload{
		"mediaID": asset.ExternalEncodingID,
		"status":  status,
	})
	return nil
}

func (m *Manager) checkTransition(asset *assets.Asset, event assets.Event) error {
	current := asset.EncodingStatus
	if current == "" {
		current = assets.StatusInit
	}
	_, err := assets.Transition(current, event)
	return err
}

// ProcessCallback resolves and handles a notification as one critical
// section keyed by the asset. A repeated delivery for a job that already
// reached the reported outcome is logged and ignored.
func (m *Manager) ProcessCallback(ctx context.Context, payload encodingcom.CallbackPayload) error {
	ctx, logger := m.operationContext(ctx, "callback", 0)
	mediaID := strings.TrimSpace(payload.MediaID)
	if mediaID == "" {
		return services.Wrap(services.ErrMalformedCallback, "encoding", "callback", "notification has no media id", nil)
	}
	payload.MediaID = mediaID

	resolved, err := m.ResolveJob(ctx, mediaID)
	if err != nil || resolved == nil {
		return err
	}

	unlock, err := m.lock(ctx, resolved.ID)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock: a concurrent delivery or resubmission may have moved the job.
	asset, err := m.store.GetByID(ctx, resolved.ID)
	if err != nil {
		return err
	}
	if asset == nil || asset.ExternalEncodingID != mediaID {
		logging.WarnWithContext(logger, "callback for superseded media id", "encoding_callback_superseded",
			logging.AssetID(resolved.ID),
			logging.MediaID(mediaID),
			logging.String(logging.FieldImpact, "notification ignored"),
		)
		return nil
	}

	err = m.HandleCallback(ctx, asset, payload)
	if err != nil && errors.Is(err, services.ErrInvalidTransition) && m.isDuplicate(asset, payload) {
		logger.Info("duplicate callback ignored",
			logging.AssetID(asset.ID),
			logging.MediaID(mediaID),
			logging.String("status", string(asset.EncodingStatus)),
		)
		return nil
	}
	return err
}

func (m *Manager) isDuplicate(asset *assets.Asset, payload encodingcom.CallbackPayload) bool {
	if payload.Status == m.successStatus {
		return asset.EncodingStatus == assets.StatusDone
	}
	return asset.EncodingStatus == assets.StatusError
}
