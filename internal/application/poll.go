package application

import (
	"context"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
)

type PollResult struct {
	Annotations []domain.Annotation
	Reason      domain.PollReason
}

type pollDelivery struct {
	annotations []domain.Annotation
	reason      domain.PollReason
}

// waiter is one parked poll. The channel has room for exactly one delivery and
// only the party that detached the waiter from its session slot sends on it.
type waiter struct {
	ch chan pollDelivery
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan pollDelivery, 1)}
}

func (w *waiter) resolve(delivery pollDelivery) {
	if w == nil {
		return
	}
	w.ch <- delivery
}

// Poll drains the session queue, or parks until an annotation is routed to the
// session, the timeout elapses, another poll replaces this one, or the session
// is evicted. A non-positive timeout uses the configured default; timeouts
// above the configured maximum are clamped.
func (r *Relay) Poll(ctx context.Context, id domain.SessionID, timeout time.Duration) (PollResult, error) {
	if err := ctx.Err(); err != nil {
		return PollResult{}, err
	}

	entry, err := r.lookup(id)
	if err != nil {
		return PollResult{}, err
	}

	return r.pollEntry(ctx, id, entry, r.pollTimeout(timeout))
}

func (r *Relay) pollEntry(ctx context.Context, id domain.SessionID, entry *sessionEntry, timeout time.Duration) (PollResult, error) {
	entry.mu.Lock()
	if entry.removed {
		entry.mu.Unlock()
		return PollResult{}, domain.ErrSessionNotFound
	}
	entry.session.Touch(r.clock.Now())

	if len(entry.session.Pending) > 0 {
		drained := entry.session.DrainPending()
		entry.mu.Unlock()
		return r.completePoll(id, drained, domain.PollReasonPending), nil
	}

	// Close may have collected the waiters between lookup and here.
	if entry.closed {
		entry.mu.Unlock()
		return r.completePoll(id, nil, domain.PollReasonShutdown), nil
	}

	w := newWaiter()
	replaced := entry.waiter
	entry.waiter = w
	entry.mu.Unlock()

	if replaced != nil {
		r.log.V(1).Info("poll replaced by newer poll", "sessionId", id)
		replaced.resolve(pollDelivery{reason: domain.PollReasonReplaced})
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case delivery := <-w.ch:
		return r.completePoll(id, delivery.annotations, delivery.reason), nil
	case <-timer.C:
		delivery := r.abandon(entry, w, domain.PollReasonTimeout)
		return r.completePoll(id, delivery.annotations, delivery.reason), nil
	case <-ctx.Done():
		r.cancelPoll(id, entry, w)
		r.observer.PollCompleted(domain.PollReasonCanceled)
		return PollResult{Annotations: []domain.Annotation{}, Reason: domain.PollReasonCanceled}, ctx.Err()
	}
}

// cancelPoll detaches a poll whose caller went away. A delivery already in
// flight goes back to the front of the queue, or straight to a newer poll
// parked in the meantime.
func (r *Relay) cancelPoll(id domain.SessionID, entry *sessionEntry, w *waiter) {
	delivery := r.abandon(entry, w, domain.PollReasonCanceled)
	if len(delivery.annotations) == 0 {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return
	}
	entry.session.Requeue(delivery.annotations)
	if entry.handOffLocked() {
		r.log.V(1).Info("requeued annotations handed to newer poll", "sessionId", id)
	}
}

// abandon detaches w if it is still parked. If someone else already detached
// it, their delivery is in flight and is returned instead.
func (r *Relay) abandon(entry *sessionEntry, w *waiter, reason domain.PollReason) pollDelivery {
	entry.mu.Lock()
	if entry.waiter == w {
		entry.waiter = nil
		entry.mu.Unlock()
		return pollDelivery{reason: reason}
	}
	entry.mu.Unlock()

	return <-w.ch
}

func (r *Relay) completePoll(id domain.SessionID, annotations []domain.Annotation, reason domain.PollReason) PollResult {
	if annotations == nil {
		annotations = []domain.Annotation{}
	}

	r.observer.PollCompleted(reason)
	r.log.V(1).Info("poll completed", "sessionId", id, "reason", reason, "annotations", len(annotations))
	return PollResult{Annotations: annotations, Reason: reason}
}

func (r *Relay) pollTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return r.cfg.DefaultPollTimeout
	}
	if requested > r.cfg.MaxPollTimeout {
		return r.cfg.MaxPollTimeout
	}

	return requested
}
