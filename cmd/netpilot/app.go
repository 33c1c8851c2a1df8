package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"netpilot/internal/config"
	"netpilot/internal/domain"
	"netpilot/internal/executor"
	"netpilot/internal/logging"
	"netpilot/internal/pipeline"
	"netpilot/internal/repository/sqlite"
	"netpilot/internal/session"
	"netpilot/internal/transport"
	"netpilot/internal/vendor"
)

// app holds the components every command shares
type app struct {
	cfg        *config.Config
	configPath string
	behavior   config.BehaviorProfile
	logger     *zap.Logger
	out        *output

	repo        *sqlite.Repository
	registry    *vendor.Registry
	dialer      *transport.SSHDialer
	credentials *config.CredentialResolver
	sessions    *session.Manager
	executor    *executor.Executor
	pipeline    *pipeline.Pipeline
}

func loadConfig(g globalFlags) (*config.Config, string, error) {
	if g.configPath != "" {
		return config.LoadFromPath(g.configPath)
	}
	return config.Load()
}

// newApp loads the config and wires the store, transport, and core
func newApp(g globalFlags) (*app, error) {
	cfg, path, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if g.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}

	dialer, err := transport.NewSSHDialer(
		transport.WithKnownHostsFile(cfg.SSH.KnownHostsFile),
		transport.WithLogger(logger),
	)
	if err != nil {
		repo.Close()
		logger.Sync()
		return nil, err
	}

	behavior := cfg.EffectiveBehavior()
	registry := vendor.DefaultRegistry(logger)
	credentials := config.NewCredentialResolver(cfg)

	sessions := session.NewManager(dialer, registry, credentials,
		session.WithLogger(logger),
		session.WithConnectTimeout(behavior.ConnectTimeout),
		session.WithCommandTimeout(behavior.CommandTimeout),
	)
	exec := executor.New(
		executor.WithLogger(logger),
		executor.WithTimeout(behavior.CommandTimeout),
		executor.WithSlowTimeout(behavior.SlowCommandTimeout),
	)
	pipe := pipeline.New(sessions, exec, registry,
		pipeline.WithLogger(logger),
		pipeline.WithFactWriter(repo),
		pipeline.WithSlowTimeout(behavior.SlowCommandTimeout),
	)

	logger.Debug("netpilot started",
		zap.String("config", path),
		zap.String("posture", string(cfg.Posture)),
		zap.String("database", cfg.Database.Path),
	)

	return &app{
		cfg:         cfg,
		configPath:  path,
		behavior:    behavior,
		logger:      logger,
		out:         newOutput(g.jsonOutput),
		repo:        repo,
		registry:    registry,
		dialer:      dialer,
		credentials: credentials,
		sessions:    sessions,
		executor:    exec,
		pipeline:    pipe,
	}, nil
}

// Close ends every session and releases the store
func (a *app) Close() {
	a.sessions.CloseAll()
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// device resolves a device reference (ID, name, or address)
func (a *app) device(ctx context.Context, ref string) (domain.Device, error) {
	if ref == "" {
		return domain.Device{}, fmt.Errorf("a device is required")
	}
	return a.repo.FindDevice(ctx, ref)
}

// devices resolves references, or returns the whole inventory when refs is
// empty, optionally filtered by vendor
func (a *app) devices(ctx context.Context, refs []string, vendorTag string) ([]domain.Device, error) {
	var devices []domain.Device
	if len(refs) == 0 {
		all, err := a.repo.ListDevices(ctx)
		if err != nil {
			return nil, err
		}
		devices = all
	} else {
		for _, ref := range refs {
			d, err := a.device(ctx, ref)
			if err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
	}

	if vendorTag == "" {
		return devices, nil
	}
	family, err := domain.ParseVendorFamily(vendorTag)
	if err != nil {
		return nil, err
	}
	filtered := devices[:0]
	for _, d := range devices {
		if d.Vendor == family {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}
