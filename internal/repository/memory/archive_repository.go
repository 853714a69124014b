package memory

import (
	"context"
	"sync"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/internal/repository/contract"

	"github.com/google/uuid"
)

// ArchiveRepository is the default session archive when no database is
// configured. Sessions live for the process lifetime only.
type ArchiveRepository struct {
	mu       sync.RWMutex
	byKey    map[string]*entity.ResearchSession
	sessions []*entity.ResearchSession // insertion order
}

func NewArchiveRepository() contract.ResearchSessionRepository {
	return &ArchiveRepository{
		byKey: make(map[string]*entity.ResearchSession),
	}
}

func (r *ArchiveRepository) Create(ctx context.Context, session *entity.ResearchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	stored := *session
	r.byKey[stored.SessionKey] = &stored
	r.sessions = append(r.sessions, &stored)
	return nil
}

func (r *ArchiveRepository) FindByKey(ctx context.Context, sessionKey string) (*entity.ResearchSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, found := r.byKey[sessionKey]
	if !found {
		return nil, nil
	}
	session := *stored
	return &session, nil
}

func (r *ArchiveRepository) FindRecent(ctx context.Context, limit int) ([]*entity.ResearchSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.sessions) {
		limit = len(r.sessions)
	}

	// Newest first: walk the insertion-ordered slice backwards.
	recent := make([]*entity.ResearchSession, 0, limit)
	for i := len(r.sessions) - 1; i >= 0 && len(recent) < limit; i-- {
		session := *r.sessions[i]
		recent = append(recent, &session)
	}
	return recent, nil
}

func (r *ArchiveRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.sessions)), nil
}
