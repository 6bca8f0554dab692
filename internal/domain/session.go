package domain

import (
	"strings"
	"time"
)

type SessionID string

// Session is a routing scope: the URL prefixes a consumer claimed and the
// annotations routed to it that no poll has drained yet.
type Session struct {
	ID             SessionID
	ConsumerID     string
	URLPrefixes    []string
	CreatedAt      time.Time
	LastActivityAt time.Time
	Pending        []Annotation
}

type SessionSummary struct {
	ID             SessionID `json:"id"`
	ConsumerID     string    `json:"consumerId"`
	URLPrefixes    []string  `json:"urls"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivity"`
	PendingCount   int       `json:"pendingAnnotations"`
}

func NewSession(id SessionID, consumerID string, now time.Time) Session {
	return Session{
		ID:             id,
		ConsumerID:     consumerID,
		URLPrefixes:    []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// AddPrefix appends prefix unless already present and reports whether it was added.
func (s *Session) AddPrefix(prefix string) bool {
	for _, existing := range s.URLPrefixes {
		if existing == prefix {
			return false
		}
	}

	s.URLPrefixes = append(s.URLPrefixes, prefix)
	return true
}

func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivityAt) {
		s.LastActivityAt = now
	}
}

// DrainPending empties the queue and returns its previous contents in FIFO order.
func (s *Session) DrainPending() []Annotation {
	drained := s.Pending
	s.Pending = nil
	return drained
}

// Requeue puts annotations back at the head of the queue, ahead of anything
// enqueued since they were drained.
func (s *Session) Requeue(annotations []Annotation) {
	if len(annotations) == 0 {
		return
	}

	merged := make([]Annotation, 0, len(annotations)+len(s.Pending))
	merged = append(merged, annotations...)
	merged = append(merged, s.Pending...)
	s.Pending = merged
}

func (s Session) IsStale(now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}

	return now.Sub(s.LastActivityAt) >= staleAfter
}

func (s Session) Summary() SessionSummary {
	prefixes := make([]string, len(s.URLPrefixes))
	copy(prefixes, s.URLPrefixes)

	return SessionSummary{
		ID:             s.ID,
		ConsumerID:     s.ConsumerID,
		URLPrefixes:    prefixes,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		PendingCount:   len(s.Pending),
	}
}

// Snapshot returns a copy suitable for persistence: prefixes and timestamps
// without the pending queue.
func (s Session) Snapshot() Session {
	prefixes := make([]string, len(s.URLPrefixes))
	copy(prefixes, s.URLPrefixes)

	return Session{
		ID:             s.ID,
		ConsumerID:     s.ConsumerID,
		URLPrefixes:    prefixes,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// ParseSessionID checks a caller-chosen id is 1-64 characters of letters,
// digits, '-' or '_'.
func ParseSessionID(raw string) (SessionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > 64 {
		return "", ErrInvalidSessionID
	}

	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", ErrInvalidSessionID
		}
	}

	return SessionID(trimmed), nil
}
