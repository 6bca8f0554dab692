package ports

import "github.com/bnema/annotation-relay/internal/domain"

type SessionIDGenerator interface {
	NewSessionID() (domain.SessionID, error)
}
