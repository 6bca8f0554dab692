package relayclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bnema/annotation-relay/internal/adapters/httpapi"
	"github.com/bnema/annotation-relay/internal/adapters/repo/memory"
	"github.com/bnema/annotation-relay/internal/application"
	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelayServer(t *testing.T) *Client {
	t.Helper()

	cfg := application.DefaultRelayConfig()
	cfg.DefaultPollTimeout = 50 * time.Millisecond
	store := memory.NewRepository()
	relay := application.NewRelay(store, store, nil, cfg)
	t.Cleanup(func() { _ = relay.Close(context.Background()) })

	srv := httpapi.NewServer(relay, httpapi.Options{MaxPollTimeout: cfg.MaxPollTimeout, Logger: logr.Discard()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &Client{BaseURL: ts.URL, HTTPClient: ts.Client(), RequestTimeout: 5 * time.Second}
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	client := newRelayServer(t)
	ctx := context.Background()

	id, err := client.Register(ctx, "assistant")
	require.NoError(t, err)
	require.Len(t, string(id), domain.SessionIDLength)
	require.NoError(t, client.LinkURL(ctx, id, "http://x.test"))

	found, ok, err := client.FindByURL(ctx, "http://x.test/page?x=1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, found.ID)

	_, ok, err = client.FindByURL(ctx, "http://y.test")
	require.NoError(t, err)
	assert.False(t, ok)

	submitted, err := client.Submit(ctx, "fix padding", domain.Element{URL: "http://x.test/page", Selector: ".card"})
	require.NoError(t, err)
	assert.True(t, submitted.Delivered)
	assert.Equal(t, id, submitted.SessionID)

	summary, err := client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, "assistant", summary.ConsumerID)

	polled, err := client.Poll(ctx, id, time.Second)
	require.NoError(t, err)
	require.Len(t, polled.Annotations, 1)
	assert.Equal(t, "fix padding", polled.Annotations[0].Note)
	assert.Equal(t, ".card", polled.Annotations[0].Element.Selector)
	assert.Equal(t, domain.PollReasonPending, polled.Reason)

	empty, err := client.Poll(ctx, id, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, empty.Annotations)
	assert.Equal(t, domain.PollReasonTimeout, empty.Reason)

	sessions, err := client.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	archived, err := client.Archived(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, submitted.ID, archived[0].ID)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Sessions)
}

func TestClientMapsErrorCodesToDomainErrors(t *testing.T) {
	t.Parallel()

	client := newRelayServer(t)
	ctx := context.Background()

	err := client.LinkURL(ctx, "NOPE00", "http://x.test")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "session_not_found", apiErr.Code)

	_, err = client.Create(ctx, "a", "shared")
	require.NoError(t, err)
	_, err = client.Create(ctx, "b", "shared")
	require.ErrorIs(t, err, domain.ErrSessionIDTaken)

	_, err = client.Submit(ctx, "no url", domain.Element{Selector: "div"})
	require.ErrorIs(t, err, domain.ErrMalformedAnnotation)
}

func TestClientHandlesNonJSONErrors(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	client := New(ts.URL)
	_, err := client.Sessions(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Contains(t, err.Error(), "status 502")
}

func TestBuildURLValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		wantErr string
	}{
		{name: "empty", base: "", wantErr: "relay url is required"},
		{name: "bad scheme", base: "ftp://127.0.0.1", wantErr: "must use http or https"},
		{name: "no host", base: "http://", wantErr: "host is required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := buildURL(tt.base, "/api/sessions", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	endpoint, err := buildURL("http://127.0.0.1:3180/ignored", "/api/session/poll", map[string][]string{"sessionId": {"AB12CD"}})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:3180/api/session/poll?sessionId=AB12CD", endpoint)
}

func TestRequestContextExtendsForPolls(t *testing.T) {
	t.Parallel()

	client := &Client{RequestTimeout: time.Second}

	ctx, cancel := client.requestContext(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Greater(t, time.Until(deadline), time.Minute)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	same, cancelSame := client.requestContext(parent, time.Minute)
	defer cancelSame()
	assert.Equal(t, parent, same)
}

func TestDefaultPollOutlivesRequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := application.DefaultRelayConfig()
	cfg.DefaultPollTimeout = 300 * time.Millisecond
	store := memory.NewRepository()
	relay := application.NewRelay(store, store, nil, cfg)
	t.Cleanup(func() { _ = relay.Close(context.Background()) })

	srv := httpapi.NewServer(relay, httpapi.Options{MaxPollTimeout: cfg.MaxPollTimeout, Logger: logr.Discard()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := &Client{BaseURL: ts.URL, HTTPClient: ts.Client(), RequestTimeout: 50 * time.Millisecond}
	ctx := context.Background()

	id, err := client.Register(ctx, "cli")
	require.NoError(t, err)

	start := time.Now()
	result, err := client.Poll(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Annotations)
	assert.Equal(t, domain.PollReasonTimeout, result.Reason)
	assert.GreaterOrEqual(t, time.Since(start), cfg.DefaultPollTimeout)
}
