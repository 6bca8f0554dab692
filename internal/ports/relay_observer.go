package ports

import "github.com/bnema/annotation-relay/internal/domain"

type RelayObserver interface {
	SessionsChanged(live int)
	AnnotationSubmitted(routed bool)
	PollCompleted(reason domain.PollReason)
	SessionsReaped(count int)
}

type NopObserver struct{}

func (NopObserver) SessionsChanged(int) {}
func (NopObserver) AnnotationSubmitted(bool) {}
func (NopObserver) PollCompleted(domain.PollReason) {}
func (NopObserver) SessionsReaped(int) {}
