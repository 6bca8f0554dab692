package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositorySessionsRoundTripKeepsOrder(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	sessions := []domain.Session{
		{ID: "ZZ0000", ConsumerID: "second-alpha", URLPrefixes: []string{"http://z.test"}, CreatedAt: created, LastActivityAt: created},
		{ID: "AA0000", ConsumerID: "first-alpha", URLPrefixes: []string{}, CreatedAt: created, LastActivityAt: created.Add(time.Minute)},
	}
	require.NoError(t, repo.Save(ctx, sessions))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sessions, loaded)

	require.NoError(t, repo.Save(ctx, sessions[1:]))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.SessionID("AA0000"), loaded[0].ID)

	require.NoError(t, repo.Save(ctx, nil))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRepositoryArchive(t *testing.T) {
	t.Parallel()

	repo := openTestRepository(t)
	ctx := context.Background()
	received := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var element domain.Element
	require.NoError(t, json.Unmarshal([]byte(`{"url":"http://x.test/page1","selector":"button.save","extra":[1,2]}`), &element))

	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "1", SessionID: "AB12CD", Note: "first", Element: element, ReceivedAt: received}))
	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "2", Note: "unrouted", Element: domain.Element{URL: "http://y.test"}, ReceivedAt: received}))
	require.NoError(t, repo.Append(ctx, domain.Annotation{ID: "3", SessionID: "AB12CD", Note: "third", Element: domain.Element{URL: "http://x.test"}, ReceivedAt: received}))

	all, err := repo.List(ctx, ports.ArchiveQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "button.save", all[0].Element.Selector)
	assert.Equal(t, received, all[0].ReceivedAt)

	scoped, err := repo.List(ctx, ports.ArchiveQuery{SessionID: "AB12CD", Limit: 1})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "third", scoped[0].Note)

	latestTwo, err := repo.List(ctx, ports.ArchiveQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, latestTwo, 2)
	assert.Equal(t, "2", latestTwo[0].ID)
	assert.Equal(t, "3", latestTwo[1].ID)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	require.Error(t, err)
}

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(filepath.Join(t.TempDir(), "db", "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
