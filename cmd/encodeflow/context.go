package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"encodeflow/internal/assets"
	"encodeflow/internal/config"
	"encodeflow/internal/encoding"
	"encodeflow/internal/encoding/locks"
	"encodeflow/internal/encodingcom"
	"encodeflow/internal/logging"
	"encodeflow/internal/notifications"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

// runtime bundles the collaborators a command needs to drive the lifecycle.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *assets.Store
	manager *encoding.Manager
	closers []func() error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withRuntime opens the store, locker, and manager for the duration of fn.
func (c *commandContext) withRuntime(fn func(*runtime) error) (err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	rt, err := openRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rt.close())
	}()
	return fn(rt)
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	store, err := assets.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open asset store: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger, store: store, closers: []func() error{store.Close}}

	locker, closeLocks, err := locks.New(cfg, logger)
	if err != nil {
		_ = rt.close()
		return nil, fmt.Errorf("init locking: %w", err)
	}
	rt.closers = append(rt.closers, closeLocks)

	client := encodingcom.NewClient(cfg.Provider.Endpoint,
		encodingcom.WithTimeout(cfg.ProviderTimeout()),
		encodingcom.WithLogger(logger),
	)
	manager, err := encoding.NewManager(cfg, store, client,
		encoding.WithLocker(locker),
		encoding.WithLogger(logger),
		encoding.WithNotifier(notifications.NewService(cfg)),
	)
	if err != nil {
		_ = rt.close()
		return nil, err
	}
	rt.manager = manager
	return rt, nil
}

func (r *runtime) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
