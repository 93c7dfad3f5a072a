package guard

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts stale state from the in-memory stores. It
// complements the probabilistic cleanup that runs on the hot path, putting
// an upper bound on how long dead entries linger on a quiet instance.
type Sweeper struct {
	interval time.Duration
	sweep    func(now time.Time)

	now func() time.Time
}

func NewSweeper(interval time.Duration, sweep func(now time.Time)) *Sweeper {
	return &Sweeper{
		interval: interval,
		sweep:    sweep,
		now:      time.Now,
	}
}

// Run blocks until the context is canceled, sweeping once immediately and
// then on every tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(s.now())

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopping")
			return nil
		case <-ticker.C:
			s.sweep(s.now())
		}
	}
}
