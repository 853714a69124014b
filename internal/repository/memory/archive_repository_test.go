package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ai-research-be/internal/entity"
	"ai-research-be/pkg/store"

	"github.com/google/uuid"
)

func archivedSession(key string, startedAt time.Time) *entity.ResearchSession {
	finished := startedAt.Add(30 * time.Second)
	return &entity.ResearchSession{
		SessionKey:   key,
		Mode:         "Basic",
		Query:        "query for " + key,
		Status:       store.StatusCompleted,
		Result:       "report",
		TotalCostUSD: 0.01,
		StartedAt:    startedAt,
		FinishedAt:   &finished,
	}
}

func TestArchiveCreateAndFind(t *testing.T) {
	repo := NewArchiveRepository()
	ctx := context.Background()

	session := archivedSession("session_1_abc", time.Now())
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Id == uuid.Nil {
		t.Fatal("Create should assign an id")
	}

	found, err := repo.FindByKey(ctx, "session_1_abc")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if found == nil || found.Query != session.Query {
		t.Fatalf("found = %+v", found)
	}

	// Mutating the returned entity must not leak into the store.
	found.Query = "mutated"
	again, _ := repo.FindByKey(ctx, "session_1_abc")
	if again.Query == "mutated" {
		t.Fatal("FindByKey returned shared state")
	}

	missing, err := repo.FindByKey(ctx, "session_0_nope")
	if err != nil {
		t.Fatalf("FindByKey missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}
}

func TestArchiveFindRecentOrdersNewestFirst(t *testing.T) {
	repo := NewArchiveRepository()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("session_%d_x", i)
		if err := repo.Create(ctx, archivedSession(key, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Create %s: %v", key, err)
		}
	}

	recent, err := repo.FindRecent(ctx, 3)
	if err != nil {
		t.Fatalf("FindRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	want := []string{"session_4_x", "session_3_x", "session_2_x"}
	for i, session := range recent {
		if session.SessionKey != want[i] {
			t.Fatalf("recent[%d] = %s, want %s", i, session.SessionKey, want[i])
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func TestRunRepositoryRoundTrip(t *testing.T) {
	repo := NewRunRepository()

	run := &store.Run{
		ID:     "session_9_run",
		Mode:   "Basic",
		Query:  "q",
		Status: store.StatusRunning,
	}
	repo.Save(run)

	got, found := repo.Get("session_9_run")
	if !found {
		t.Fatal("expected run to be cached")
	}
	if got.Status != store.StatusRunning {
		t.Fatalf("status = %q", got.Status)
	}

	repo.Delete("session_9_run")
	if _, found := repo.Get("session_9_run"); found {
		t.Fatal("expected run to be deleted")
	}
}
