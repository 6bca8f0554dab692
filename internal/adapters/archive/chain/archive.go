package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
)

// Archive writes to primary and spills to fallback when primary fails.
// Listing merges both so spilled annotations stay visible.
type Archive struct {
	primary  ports.AnnotationArchive
	fallback ports.AnnotationArchive
}

var _ ports.AnnotationArchive = (*Archive)(nil)

var (
	errNilPrimaryArchive  = errors.New("primary annotation archive is nil")
	errNilFallbackArchive = errors.New("fallback annotation archive is nil")
)

func NewArchive(primary ports.AnnotationArchive, fallback ports.AnnotationArchive) *Archive {
	archive, err := NewArchiveChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return archive
}

func NewArchiveChecked(primary ports.AnnotationArchive, fallback ports.AnnotationArchive) (*Archive, error) {
	if primary == nil {
		return nil, errNilPrimaryArchive
	}
	if fallback == nil {
		return nil, errNilFallbackArchive
	}

	return &Archive{primary: primary, fallback: fallback}, nil
}

func (a *Archive) Append(ctx context.Context, annotation domain.Annotation) error {
	err := a.primary.Append(ctx, annotation)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := a.fallback.Append(ctx, annotation)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary archive append failed: %w; fallback archive append failed: %w", err, fallbackErr)
}

func (a *Archive) List(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error) {
	unlimited := ports.ArchiveQuery{SessionID: query.SessionID}

	primary, err := a.primary.List(ctx, unlimited)
	if err != nil && shouldSkipFallback(err) {
		return nil, err
	}

	spilled, fallbackErr := a.fallback.List(ctx, unlimited)
	if err != nil && fallbackErr != nil {
		return nil, fmt.Errorf("primary archive list failed: %w; fallback archive list failed: %w", err, fallbackErr)
	}

	merged := make([]domain.Annotation, 0, len(primary)+len(spilled))
	merged = append(merged, primary...)
	merged = append(merged, spilled...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ReceivedAt.Before(merged[j].ReceivedAt)
	})

	return ports.ApplyArchiveQuery(merged, query), nil
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
