package ports

import (
	"context"

	"github.com/bnema/annotation-relay/internal/domain"
)

type ArchiveQuery struct {
	SessionID domain.SessionID
	// Limit keeps the most recent N entries when positive.
	Limit int
}

// AnnotationArchive records every submitted annotation, routed or not.
type AnnotationArchive interface {
	Append(ctx context.Context, annotation domain.Annotation) error
	List(ctx context.Context, query ArchiveQuery) ([]domain.Annotation, error)
}

// ApplyArchiveQuery filters annotations held in submission order.
func ApplyArchiveQuery(annotations []domain.Annotation, query ArchiveQuery) []domain.Annotation {
	filtered := make([]domain.Annotation, 0, len(annotations))
	for _, annotation := range annotations {
		if query.SessionID != "" && annotation.SessionID != query.SessionID {
			continue
		}
		filtered = append(filtered, annotation)
	}

	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[len(filtered)-query.Limit:]
	}

	return filtered
}
