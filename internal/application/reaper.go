package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/go-logr/logr"
)

const DefaultReaperInterval = time.Hour

// Sweep evicts every session idle for at least the configured staleness
// threshold and resolves their parked polls as expired.
func (r *Relay) Sweep(ctx context.Context) ([]domain.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := r.clock.Now()

	r.mu.Lock()
	evicted := make([]domain.SessionID, 0)
	parked := make([]*waiter, 0)
	kept := r.order[:0]
	for _, id := range r.order {
		entry := r.entries[id]

		entry.mu.Lock()
		stale := entry.session.IsStale(now, r.cfg.StaleAfter)
		entry.mu.Unlock()

		if !stale {
			kept = append(kept, id)
			continue
		}

		if w := entry.evict(); w != nil {
			parked = append(parked, w)
		}
		delete(r.entries, id)
		evicted = append(evicted, id)
	}
	r.order = kept
	live := len(r.entries)
	r.mu.Unlock()

	for _, w := range parked {
		w.resolve(pollDelivery{reason: domain.PollReasonSessionExpired})
	}

	if len(evicted) == 0 {
		return evicted, nil
	}

	r.observer.SessionsReaped(len(evicted))
	r.observer.SessionsChanged(live)
	r.log.Info("reaped stale sessions", "count", len(evicted), "sessionIds", evicted, "live", live)
	r.persist(ctx)

	return evicted, nil
}

type sweeper interface {
	Sweep(ctx context.Context) ([]domain.SessionID, error)
}

// Reaper runs Sweep on a fixed interval until stopped.
type Reaper struct {
	sweeper  sweeper
	interval time.Duration
	log      logr.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewReaper(s sweeper, interval time.Duration, log logr.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}

	return &Reaper{sweeper: s, interval: interval, log: log}
}

// Start launches the sweep loop. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(ctx, r.stop, r.done)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done
}

func (r *Reaper) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce(ctx)
		}
	}
}

func (r *Reaper) sweepOnce(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Error(fmt.Errorf("panic: %v", recovered), "session sweep panicked")
		}
	}()

	if _, err := r.sweeper.Sweep(ctx); err != nil {
		r.log.Error(err, "session sweep failed")
	}
}
