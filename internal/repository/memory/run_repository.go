package memory

import (
	"time"

	"ai-research-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// RunRepository tracks in-flight research runs. Every progress update
// re-saves the run, so the expiration only ever reaps runs nothing has
// touched for an hour (abandoned or long-finished ones).
type RunRepository struct {
	cache *cache.Cache
}

func NewRunRepository() *RunRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &RunRepository{
		cache: c,
	}
}

func (r *RunRepository) Save(run *store.Run) {
	r.cache.Set(run.ID, run, cache.DefaultExpiration)
}

func (r *RunRepository) Get(runID string) (*store.Run, bool) {
	if x, found := r.cache.Get(runID); found {
		return x.(*store.Run), true
	}
	return nil, false
}

func (r *RunRepository) Delete(runID string) {
	r.cache.Delete(runID)
}
