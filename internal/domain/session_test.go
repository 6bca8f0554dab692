package domain

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAddPrefixIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	s := NewSession("AB12CD", "consumer", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	assert.True(t, s.AddPrefix("http://x.test"))
	assert.True(t, s.AddPrefix("http://y.test"))
	assert.False(t, s.AddPrefix("http://x.test"))
	assert.Equal(t, []string{"http://x.test", "http://y.test"}, s.URLPrefixes)
}

func TestSessionTouchNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession("AB12CD", "consumer", created)

	s.Touch(created.Add(-time.Minute))
	assert.Equal(t, created, s.LastActivityAt)

	s.Touch(created.Add(time.Minute))
	assert.Equal(t, created.Add(time.Minute), s.LastActivityAt)
}

func TestSessionDrainAndRequeuePreserveOrder(t *testing.T) {
	t.Parallel()

	s := NewSession("AB12CD", "consumer", time.Now())
	s.Pending = []Annotation{{ID: "a"}, {ID: "b"}}

	drained := s.DrainPending()
	require.Len(t, drained, 2)
	assert.Empty(t, s.Pending)

	s.Pending = append(s.Pending, Annotation{ID: "c"})
	s.Requeue(drained)

	ids := make([]string, 0, len(s.Pending))
	for _, a := range s.Pending {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSessionStaleDetection(t *testing.T) {
	t.Parallel()

	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := Session{LastActivityAt: last}

	assert.False(t, s.IsStale(last.Add(23*time.Hour), 24*time.Hour))
	assert.True(t, s.IsStale(last.Add(24*time.Hour), 24*time.Hour))
	assert.False(t, s.IsStale(last.Add(48*time.Hour), 0))
}

func TestSessionSummaryAndSnapshotCopyPrefixes(t *testing.T) {
	t.Parallel()

	s := NewSession("AB12CD", "consumer", time.Now())
	s.AddPrefix("http://x.test")
	s.Pending = []Annotation{{ID: "a"}}

	summary := s.Summary()
	snapshot := s.Snapshot()
	s.URLPrefixes[0] = "mutated"

	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, []string{"http://x.test"}, summary.URLPrefixes)
	assert.Equal(t, []string{"http://x.test"}, snapshot.URLPrefixes)
	assert.Empty(t, snapshot.Pending)
}

func TestParseSessionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    SessionID
		wantErr bool
	}{
		{name: "short code", raw: "AB12CD", want: "AB12CD"},
		{name: "trimmed", raw: "  my-session_1 ", want: "my-session_1"},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "bad character", raw: "ab/cd", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", 65), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSessionID(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSessionID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRandomSessionIDUsesAlphabet(t *testing.T) {
	t.Parallel()

	id, err := RandomSessionID(bytes.NewReader([]byte{0, 1, 31, 32, 255, 10}))
	require.NoError(t, err)
	assert.Equal(t, SessionID("01Z0ZA"), id)
}

func TestRandomSessionIDShortRead(t *testing.T) {
	t.Parallel()

	_, err := RandomSessionID(bytes.NewReader([]byte{1, 2}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
