package contract

import (
	"context"

	"ai-research-be/internal/entity"
)

// ResearchSessionRepository archives finished research runs. Both the
// in-memory default and the Postgres implementation honor the same contract,
// so the service never knows which one is wired.
type ResearchSessionRepository interface {
	Create(ctx context.Context, session *entity.ResearchSession) error
	// FindByKey looks up a session by its ledger id. Missing sessions
	// return (nil, nil).
	FindByKey(ctx context.Context, sessionKey string) (*entity.ResearchSession, error)
	// FindRecent returns up to limit sessions, newest first.
	FindRecent(ctx context.Context, limit int) ([]*entity.ResearchSession, error)
	Count(ctx context.Context) (int64, error)
}
