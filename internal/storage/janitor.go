package storage

import (
	"context"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/shopforge/invoicepress/internal/config"
)

const janitorInterval = time.Hour

// Janitor prunes stale artifacts across every shop namespace under the
// storage root. Retention comes from config; zero disables it.
type Janitor struct {
	gateway Gateway
	root    string
	age     time.Duration
	log     *zap.Logger
}

func NewJanitor(cfg config.Config, gateway Gateway, log *zap.Logger) *Janitor {
	return &Janitor{
		gateway: gateway,
		root:    cfg.StorageRoot,
		age:     cfg.Worker.PruneOlderThan,
		log:     log.Named("storage.janitor"),
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		j.log.Warn("storage root unreadable", zap.Error(err))
		return
	}

	total := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pruned, err := j.gateway.PruneOlderThan(ctx, entry.Name(), j.age)
		if err != nil {
			j.log.Warn("prune failed", zap.String("shop", entry.Name()), zap.Error(err))
			continue
		}
		total += pruned
	}
	if total > 0 {
		j.log.Info("stale artifacts pruned", zap.Int("count", total))
	}
}

func (j *Janitor) run(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func runJanitor(lc fx.Lifecycle, cfg config.Config, j *Janitor) {
	if cfg.Worker.PruneOlderThan <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go j.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
