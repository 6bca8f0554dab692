package ports

import (
	"context"

	"github.com/bnema/annotation-relay/internal/domain"
)

// SessionRepository persists session snapshots. Pending queues are not part
// of a snapshot; Save replaces the stored set wholesale.
type SessionRepository interface {
	Load(ctx context.Context) ([]domain.Session, error)
	Save(ctx context.Context, sessions []domain.Session) error
}
