package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByURLMatchesPrefix(t *testing.T) {
	t.Parallel()

	relay, _, _ := newTestRelay(t, DefaultRelayConfig())
	id := registerLinked(t, relay, "https://a.com")

	summary, found, err := relay.FindByURL(context.Background(), "https://a.com/page")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, summary.ID)

	_, found, err = relay.FindByURL(context.Background(), "https://b.com")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = relay.FindByURL(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindByURLDoesNotConsumeQueueOrTouchSession(t *testing.T) {
	t.Parallel()

	relay, clock, _ := newTestRelay(t, DefaultRelayConfig())
	id := registerLinked(t, relay, "https://a.com")

	_, err := relay.Submit(context.Background(), "kept", domain.Element{URL: "https://a.com/x"})
	require.NoError(t, err)
	before, err := relay.Get(context.Background(), id)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	summary, found, err := relay.FindByURL(context.Background(), "https://a.com/x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, before.LastActivityAt, summary.LastActivityAt)
}

func TestRoutingStrategiesResolveOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy domain.RoutingStrategy
		wantIdx  int
	}{
		{name: "first registered wins", strategy: domain.RoutingFirstMatch, wantIdx: 0},
		{name: "longest prefix wins", strategy: domain.RoutingLongestPrefix, wantIdx: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultRelayConfig()
			cfg.RoutingStrategy = tt.strategy
			relay, _, _ := newTestRelay(t, cfg)

			ids := []domain.SessionID{
				registerLinked(t, relay, "http://x.test"),
				registerLinked(t, relay, "http://x.test/admin"),
			}

			result, err := relay.Submit(context.Background(), "overlap", domain.Element{URL: "http://x.test/admin/users"})
			require.NoError(t, err)
			require.True(t, result.Delivered)
			assert.Equal(t, ids[tt.wantIdx], result.SessionID)

			result, err = relay.Submit(context.Background(), "public", domain.Element{URL: "http://x.test/home"})
			require.NoError(t, err)
			assert.Equal(t, ids[0], result.SessionID)
		})
	}
}

func TestLongestPrefixTieKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	cfg := DefaultRelayConfig()
	cfg.RoutingStrategy = domain.RoutingLongestPrefix
	relay, _, _ := newTestRelay(t, cfg)

	first := registerLinked(t, relay, "http://x.test")
	registerLinked(t, relay, "http://x.test")

	summary, found, err := relay.FindByURL(context.Background(), "http://x.test/")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, summary.ID)
}

func TestPrefixMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		url    string
		want   bool
	}{
		{name: "literal prefix", prefix: "http://x.test", url: "http://x.test/page1", want: true},
		{name: "literal mismatch", prefix: "http://x.test", url: "http://y.test", want: false},
		{name: "query string is literal", prefix: "http://x.test/p?id=1", url: "http://x.test/p?id=1&x=2", want: true},
		{name: "question mark is not a wildcard", prefix: "http://x.test/p?id=1", url: "http://x.test/pXid=1", want: false},
		{name: "glob segment", prefix: "http://x.test/*/edit", url: "http://x.test/items/edit", want: true},
		{name: "glob does not cross segments", prefix: "http://x.test/*/edit", url: "http://x.test/a/b/edit", want: false},
		{name: "alternation", prefix: "http://{a,b}.test/*", url: "http://b.test/home", want: true},
		{name: "empty prefix never matches", prefix: "", url: "http://x.test", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, prefixMatches(tt.prefix, tt.url))
		})
	}
}
