package encoding

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"encodeflow/internal/assets"
	"encodeflow/internal/config"
	"encodeflow/internal/encoding/locks"
	"encodeflow/internal/encodingcom"
	"encodeflow/internal/logging"
	"encodeflow/internal/notifications"
	"encodeflow/internal/services"
	"encodeflow/internal/storage"
)

// Store is the persistence surface the lifecycle needs.
type Store interface {
	CreateRoot(ctx context.Context, in assets.NewRoot) (*assets.Asset, error)
	GetByID(ctx context.Context, id int64) (*assets.Asset, error)
	FindByExternalEncodingID(ctx context.Context, externalID string) (*assets.Asset, error)
	FindOrInitChild(ctx context.Context, parentID int64, suffix string) (*assets.Asset, error)
	Save(ctx context.Context, asset *assets.Asset) error
	StuckStarted(ctx context.Context, cutoff time.Time) ([]*assets.Asset, error)
}

// Gateway submits a rendered request document and returns the provider job id.
type Gateway interface {
	Submit(ctx context.Context, doc []byte) (string, error)
}

// URLResolver supplies the source and destination URLs embedded in requests.
type URLResolver interface {
	SourceURL(asset *assets.Asset) (string, error)
	Destinations(root *assets.Asset, enc config.Encoding) (map[string]string, error)
}

// Manager coordinates submission, callbacks, and materialization.
type Manager struct {
	store         Store
	gateway       Gateway
	resolver      URLResolver
	locker        locks.Locker
	notifier      notifications.Service
	logger        *slog.Logger
	now           func() time.Time
	credentials   encodingcom.Credentials
	notifyURL     string
	successStatus string
	encoding      config.Encoding
	stuckAfter    time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithResolver overrides the URL resolver built from the storage config.
func WithResolver(resolver URLResolver) Option {
	return func(m *Manager) {
		if resolver != nil {
			m.resolver = resolver
		}
	}
}

// WithLocker overrides the in-process keyed lock.
func WithLocker(locker locks.Locker) Option {
	return func(m *Manager) {
		if locker != nil {
			m.locker = locker
		}
	}
}

// WithNotifier publishes job outcomes to the given service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a Manager from configuration and collaborators.
func NewManager(cfg *config.Config, store Store, gateway Gateway, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "encoding", "new manager", "config is nil", nil)
	}
	if store == nil || gateway == nil {
		return nil, services.Wrap(services.ErrConfiguration, "encoding", "new manager", "store and gateway are required", nil)
	}
	m := &Manager{
		store:    store,
		gateway:  gateway,
		resolver: storage.NewResolver(cfg.Storage),
		locker:   locks.NewKeyed(),
		notifier: notifications.Nop(),
		logger:   logging.NewNop(),
		now:      time.Now,
		credentials: encodingcom.Credentials{
			UserID:  cfg.Provider.UserID,
			UserKey: cfg.Provider.UserKey,
		},
		notifyURL:     cfg.Provider.NotifyURL,
		successStatus: strings.TrimSpace(cfg.Provider.SuccessStatus),
		encoding:      cfg.Encoding,
		stuckAfter:    cfg.StuckThreshold(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.successStatus == "" {
		m.successStatus = "Finished"
	}
	m.logger = logging.NewComponentLogger(m.logger, "encoding")
	return m, nil
}

// StuckJobs lists roots that have sat in started longer than the configured threshold.
func (m *Manager) StuckJobs(ctx context.Context) ([]*assets.Asset, error) {
	return m.store.StuckStarted(ctx, m.now().Add(-m.stuckAfter))
}

// StuckThreshold reports the age after which a started job counts as stuck.
func (m *Manager) StuckThreshold() time.Duration {
	return m.stuckAfter
}

func (m *Manager) operationContext(ctx context.Context, operation string, assetID int64) (context.Context, *slog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithOperation(ctx, operation)
	if assetID > 0 {
		ctx = services.WithAssetID(ctx, assetID)
	}
	return ctx, logging.WithContext(ctx, m.logger)
}

// notify publishes a lifecycle event. Delivery failures never affect job state.
func (m *Manager) notify(ctx context.Context, logger *slog.Logger, asset *assets.Asset, event notifications.Event, payload notifications.Payload) {
	if payload == nil {
		payload = notifications.Payload{}
	}
	payload["assetID"] = asset.ID
	payload["filename"] = asset.Filename
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator was not alerted; job state is unaffected"),
		)
	}
}

func (m *Manager) lock(ctx context.Context, assetID int64) (locks.Unlock, error) {
	unlock, err := m.locker.Lock(ctx, locks.AssetKey(assetID))
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "encoding", "lock", "acquire asset lock", err)
	}
	return unlock, nil
}
