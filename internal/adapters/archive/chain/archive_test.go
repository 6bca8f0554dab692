package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	portmocks "github.com/bnema/annotation-relay/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArchiveAppendUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	annotation := domain.Annotation{ID: "a1"}
	primary.EXPECT().Append(mock.Anything, annotation).Return(nil).Once()

	require.NoError(t, archive.Append(context.Background(), annotation))
}

func TestArchiveAppendSpillsToFallback(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	annotation := domain.Annotation{ID: "a1"}
	primary.EXPECT().Append(mock.Anything, annotation).Return(errors.New("disk full")).Once()
	fallback.EXPECT().Append(mock.Anything, annotation).Return(nil).Once()

	require.NoError(t, archive.Append(context.Background(), annotation))
}

func TestArchiveAppendReturnsCombinedErrorWhenBothFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	primary.EXPECT().Append(mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	fallback.EXPECT().Append(mock.Anything, mock.Anything).Return(errors.New("memory full")).Once()

	err := archive.Append(context.Background(), domain.Annotation{ID: "a1"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "memory full")
}

func TestArchiveAppendDoesNotFallBackOnCancellation(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	primary.EXPECT().Append(mock.Anything, mock.Anything).Return(context.Canceled).Once()

	err := archive.Append(context.Background(), domain.Annotation{ID: "a1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestArchiveListMergesByReceivedAt(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	primary.EXPECT().List(mock.Anything, ports.ArchiveQuery{}).Return([]domain.Annotation{
		{ID: "1", ReceivedAt: base},
		{ID: "3", ReceivedAt: base.Add(2 * time.Second)},
	}, nil).Once()
	fallback.EXPECT().List(mock.Anything, ports.ArchiveQuery{}).Return([]domain.Annotation{
		{ID: "2", ReceivedAt: base.Add(time.Second)},
	}, nil).Once()

	merged, err := archive.List(context.Background(), ports.ArchiveQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "2", merged[0].ID)
	assert.Equal(t, "3", merged[1].ID)
}

func TestArchiveListSurvivesPrimaryFailure(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockAnnotationArchive(t)
	fallback := portmocks.NewMockAnnotationArchive(t)
	archive := NewArchive(primary, fallback)

	query := ports.ArchiveQuery{SessionID: "AB12CD"}
	primary.EXPECT().List(mock.Anything, query).Return(nil, errors.New("unreadable")).Once()
	fallback.EXPECT().List(mock.Anything, query).Return([]domain.Annotation{{ID: "spilled", SessionID: "AB12CD"}}, nil).Once()

	got, err := archive.List(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "spilled", got[0].ID)
}

func TestNewArchiveCheckedRejectsNil(t *testing.T) {
	t.Parallel()

	_, err := NewArchiveChecked(nil, portmocks.NewMockAnnotationArchive(t))
	require.ErrorIs(t, err, errNilPrimaryArchive)

	_, err = NewArchiveChecked(portmocks.NewMockAnnotationArchive(t), nil)
	require.ErrorIs(t, err, errNilFallbackArchive)
}
