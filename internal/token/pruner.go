package token

import (
	"context"
	"time"

	"github.com/nkiryanov/authd/internal/logger"
)

const defaultPruneInterval = time.Hour

// PrunableBlacklist removes entries strictly past their expiry
type PrunableBlacklist interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Pruner periodically deletes blacklist rows whose tokens are past expiry.
// Safe at any cadence: a pruned entry's token fails on expiry grounds anyway.
type Pruner struct {
	blacklist PrunableBlacklist
	interval  time.Duration
	logger    logger.Logger
}

func NewPruner(blacklist PrunableBlacklist, interval time.Duration, l logger.Logger) *Pruner {
	if interval <= 0 {
		interval = defaultPruneInterval
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Pruner{blacklist: blacklist, interval: interval, logger: l}
}

// Run prunes on a timer until the context is cancelled
func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := p.blacklist.Prune(ctx, time.Now())
			if err != nil {
				p.logger.Error("blacklist prune failed", "error", err.Error())
				continue
			}
			if pruned > 0 {
				p.logger.Info("blacklist pruned", "entries", pruned)
			}
		}
	}
}
