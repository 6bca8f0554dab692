package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
)

var ErrArchiveUnavailable = errors.New("annotation archive is not configured")

// Archived lists archived annotations, oldest first.
func (r *Relay) Archived(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error) {
	if r.archive == nil {
		return nil, ErrArchiveUnavailable
	}

	annotations, err := r.archive.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list archived annotations: %w", err)
	}
	if annotations == nil {
		annotations = []domain.Annotation{}
	}

	return annotations, nil
}
