package service

import (
	"context"
	"time"

	"github.com/hearth-im/hearth/internal/home/store"
	"github.com/hearth-im/hearth/pkg/slogx"
)

// Housekeeper periodically prunes expired refresh tokens. Revoked rows are
// kept until expiry so revocation stays observable in the meantime.
type Housekeeper struct {
	store    store.Store
	interval time.Duration
	now      func() time.Time
}

func NewHousekeeper(st store.Store, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeper{store: st, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(ctx)
		}
	}
}

func (h *Housekeeper) sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)
	n, err := h.store.RefreshTokens().DeleteExpired(ctx, h.now())
	if err != nil {
		log.Error("refresh token sweep failed", "err", err)
		return
	}
	if n > 0 {
		log.Info("pruned expired refresh tokens", "count", n)
	}
}
