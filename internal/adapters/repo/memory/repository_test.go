package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositorySnapshotDropsPendingQueue(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	session := domain.NewSession("AB12CD", "consumer", now)
	session.AddPrefix("http://x.test")
	session.Pending = []domain.Annotation{{ID: "a"}}

	require.NoError(t, repo.Save(context.Background(), []domain.Session{session}))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.SessionID("AB12CD"), loaded[0].ID)
	assert.Equal(t, []string{"http://x.test"}, loaded[0].URLPrefixes)
	assert.Empty(t, loaded[0].Pending)
}

func TestRepositoryArchiveKeepsOrder(t *testing.T) {
	t.Parallel()

	repo := NewRepository()
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "1", SessionID: "AB12CD"}))
	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "2"}))
	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "3", SessionID: "AB12CD"}))

	all, err := repo.List(ctx, ports.ArchiveQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)

	scoped, err := repo.List(ctx, ports.ArchiveQuery{SessionID: "AB12CD", Limit: 1})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "3", scoped[0].ID)
}

func TestRepositoryHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewRepository()
	require.ErrorIs(t, repo.Append(ctx, domain.Annotation{}), context.Canceled)
	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
