package application

import (
	"context"
	"fmt"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/google/uuid"
)

type SubmitResult struct {
	Annotation domain.Annotation
	// Delivered is true when a live session absorbed the annotation.
	Delivered bool
	// WokePoll is true when a parked poll received it directly.
	WokePoll  bool
	SessionID domain.SessionID
	Archived  bool
}

// Submit routes an annotation to the session owning its element URL and
// archives it whether or not a session matched.
func (r *Relay) Submit(ctx context.Context, note string, element domain.Element) (SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}
	if err := element.Validate(); err != nil {
		return SubmitResult{}, err
	}

	annotation := domain.Annotation{
		ID:         uuid.NewString(),
		Note:       note,
		Element:    element,
		ReceivedAt: r.clock.Now(),
	}

	result := SubmitResult{}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return SubmitResult{}, ErrRelayClosed
	}
	if target := r.routeLocked(element.URL); target != nil {
		target.mu.Lock()
		annotation.SessionID = target.session.ID
		target.session.Pending = append(target.session.Pending, annotation)
		target.session.Touch(annotation.ReceivedAt)
		result.WokePoll = target.handOffLocked()
		target.mu.Unlock()

		result.Delivered = true
		result.SessionID = annotation.SessionID
	}
	r.mu.RUnlock()

	result.Annotation = annotation
	result.Archived = r.archiveAnnotation(ctx, annotation)

	r.observer.AnnotationSubmitted(result.Delivered)
	if result.Delivered {
		r.log.Info("annotation routed", "sessionId", result.SessionID, "url", element.URL, "selector", element.Selector, "wokePoll", result.WokePoll)
	} else {
		r.log.Info("annotation archived without session", "url", element.URL)
	}

	return result, nil
}

func (r *Relay) archiveAnnotation(ctx context.Context, annotation domain.Annotation) bool {
	if r.archive == nil {
		return false
	}

	if err := r.archive.Append(context.WithoutCancel(ctx), annotation); err != nil {
		r.log.Error(fmt.Errorf("append annotation %s: %w", annotation.ID, err), "archive annotation")
		return false
	}

	return true
}
