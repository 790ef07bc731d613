// Package mirror pushes the dataset into the shared store at startup and
// keeps probing for recovery while the process runs in local-fallback mode.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nchanko/countrystate/internal/cache"
	"github.com/nchanko/countrystate/internal/dataset"
	"github.com/nchanko/countrystate/internal/health"
	"github.com/nchanko/countrystate/internal/lookup"
)

// Config tunes sync behavior.
type Config struct {
	// SyncTimeout bounds the whole sync (version check plus batched writes).
	SyncTimeout time.Duration

	// TTL applies to mirrored entries and the version marker. The probe
	// supervisor re-syncs well before expiry.
	TTL time.Duration

	// BatchSize caps how many entries go into one bulk write.
	BatchSize int
}

func (c *Config) defaults() {
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 5 * time.Second
	}
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
}

// Sync mirrors the dataset into the shared store and reports the serving
// mode to start in. It is idempotent: when the store already holds the
// current dataset version it does nothing. Every store error is non-fatal
// and yields local-fallback mode; the process always becomes ready to serve
// from local data.
func Sync(ctx context.Context, store cache.Store, data *dataset.Dataset, logger *slog.Logger, cfg Config) health.Mode {
	if store == nil {
		return health.ModeLocalFallback
	}
	cfg.defaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.SyncTimeout)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		logger.Warn("mirror sync: shared store unreachable", "cause", err)
		return health.ModeLocalFallback
	}

	marker, err := store.Get(ctx, lookup.KeyVersion)
	if err == nil && string(marker) == data.Version() {
		return health.ModeShared
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		logger.Warn("mirror sync: version check failed", "cause", err)
		return health.ModeLocalFallback
	}

	entries, err := lookup.MirrorEntries(data)
	if err != nil {
		logger.Warn("mirror sync: encoding failed", "cause", err)
		return health.ModeLocalFallback
	}

	batch := make(map[string][]byte, cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.MSet(ctx, batch, cfg.TTL); err != nil {
			return err
		}
		clear(batch)
		return nil
	}
	for key, value := range entries {
		batch[key] = value
		if len(batch) >= cfg.BatchSize {
			if err := flush(); err != nil {
				logger.Warn("mirror sync: write failed", "cause", err)
				return health.ModeLocalFallback
			}
		}
	}
	if err := flush(); err != nil {
		logger.Warn("mirror sync: write failed", "cause", err)
		return health.ModeLocalFallback
	}

	// The marker goes last: a crash mid-sync leaves no marker, so the next
	// sync redoes the work instead of trusting a partial mirror.
	if err := store.Set(ctx, lookup.KeyVersion, []byte(data.Version()), cfg.TTL); err != nil {
		logger.Warn("mirror sync: marker write failed", "cause", err)
		return health.ModeLocalFallback
	}

	logger.Info("mirror sync complete", "entries", len(entries), "version", data.Version())
	return health.ModeShared
}

// Supervisor probes an unreachable shared store and restores shared mode
// once a sync succeeds.
type Supervisor struct {
	store    cache.Store
	data     *dataset.Dataset
	monitor  *health.Monitor
	logger   *slog.Logger
	cfg      Config
	interval time.Duration
}

// NewSupervisor creates a supervisor probing at the given interval.
func NewSupervisor(store cache.Store, data *dataset.Dataset, monitor *health.Monitor, logger *slog.Logger, cfg Config, interval time.Duration) *Supervisor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Supervisor{store: store, data: data, monitor: monitor, logger: logger, cfg: cfg, interval: interval}
}

// Run blocks until ctx is done. While in local-fallback mode it pings the
// store each interval; pings stay quiet so a down store does not flood the
// log, and a successful ping triggers a full (idempotent) sync.
func (s *Supervisor) Run(ctx context.Context) {
	if s.store == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.monitor.Mode() == health.ModeShared {
				continue
			}
			pctx, cancel := context.WithTimeout(ctx, s.interval)
			err := s.store.Ping(pctx)
			cancel()
			if err != nil {
				continue
			}
			if Sync(ctx, s.store, s.data, s.logger, s.cfg) == health.ModeShared {
				s.monitor.MarkRecovered()
			}
		}
	}
}
