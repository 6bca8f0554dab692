package memory

import (
	"context"
	"sync"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
)

// Repository keeps snapshots and archived annotations for the life of the
// process. It backs the "memory" storage backend and the archive fallback.
type Repository struct {
	mu          sync.RWMutex
	sessions    []domain.Session
	annotations []domain.Annotation
}

var (
	_ ports.SessionRepository = (*Repository)(nil)
	_ ports.AnnotationArchive = (*Repository)(nil)
)

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Load(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session.Snapshot())
	}

	return sessions, nil
}

func (r *Repository) Save(ctx context.Context, sessions []domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]domain.Session, 0, len(sessions))
	for _, session := range sessions {
		stored = append(stored, session.Snapshot())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = stored
	return nil
}

func (r *Repository) Append(ctx context.Context, annotation domain.Annotation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.annotations = append(r.annotations, annotation)
	return nil
}

func (r *Repository) List(ctx context.Context, query ports.ArchiveQuery) ([]domain.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return ports.ApplyArchiveQuery(r.annotations, query), nil
}
