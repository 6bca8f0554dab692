package prometheus

import (
	"testing"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverRecordsRelayActivity(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	observer, err := NewObserver(registry)
	require.NoError(t, err)

	observer.SessionsChanged(3)
	observer.AnnotationSubmitted(true)
	observer.AnnotationSubmitted(true)
	observer.AnnotationSubmitted(false)
	observer.PollCompleted(domain.PollReasonTimeout)
	observer.PollCompleted(domain.PollReasonDelivered)
	observer.SessionsReaped(2)

	assert.InDelta(t, 3, testutil.ToFloat64(observer.sessions), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(observer.submissions.WithLabelValues("true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(observer.submissions.WithLabelValues("false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(observer.polls.WithLabelValues("timeout")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(observer.reaped), 0)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "relay_sessions")
	assert.Contains(t, names, "relay_polls_total")
}

func TestNewObserverRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewObserver(registry)
	require.NoError(t, err)

	_, err = NewObserver(registry)
	require.Error(t, err)
}
