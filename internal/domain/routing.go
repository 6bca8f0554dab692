package domain

import "fmt"

type RoutingStrategy string

const (
	RoutingFirstMatch    RoutingStrategy = "first-match"
	RoutingLongestPrefix RoutingStrategy = "longest-prefix"
)

func ParseRoutingStrategy(raw string) (RoutingStrategy, error) {
	switch RoutingStrategy(raw) {
	case "", RoutingFirstMatch:
		return RoutingFirstMatch, nil
	case RoutingLongestPrefix:
		return RoutingLongestPrefix, nil
	default:
		return "", fmt.Errorf("unsupported routing strategy %q", raw)
	}
}

// PollReason says why a poll returned.
type PollReason string

const (
	PollReasonPending        PollReason = "pending"
	PollReasonDelivered      PollReason = "delivered"
	PollReasonTimeout        PollReason = "timeout"
	PollReasonReplaced       PollReason = "replaced"
	PollReasonSessionExpired PollReason = "session_expired"
	PollReasonShutdown       PollReason = "shutdown"
	PollReasonCanceled       PollReason = "canceled"
)
