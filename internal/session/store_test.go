package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"scriptflow/internal/services"
	"scriptflow/internal/session"
	"scriptflow/internal/testsupport"
)

func TestCreateDefaultsStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess, err := store.Create(ctx, "videos/42/session.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.EncodingState != session.StateReady {
		t.Fatalf("encoding state = %s, want READY", sess.EncodingState)
	}
	if sess.ScriptState != session.StateNone || sess.AnalyzeState != session.StateNone {
		t.Fatalf("script/analyze = %s/%s, want NONE/NONE", sess.ScriptState, sess.AnalyzeState)
	}
	if sess.CreatedAt.IsZero() || sess.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set")
	}
}

func TestCreateRejectsEmptyOrigin(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Create(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClaimReadyTakesOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.Create(ctx, "videos/1/a.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "videos/2/b.mp4"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	claimed, err := store.ClaimReady(ctx, session.StageEncoding, "encoding")
	if err != nil {
		t.Fatalf("ClaimReady failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want session %d", claimed, first.ID)
	}
	if claimed.EncodingState != session.StateStart {
		t.Fatalf("claimed state = %s, want START", claimed.EncodingState)
	}
	if claimed.ClaimedBy != "encoding" || claimed.ClaimedAt == nil {
		t.Fatalf("claim metadata missing: by=%q at=%v", claimed.ClaimedBy, claimed.ClaimedAt)
	}

	reloaded, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.EncodingState != session.StateStart {
		t.Fatalf("persisted state = %s, want START", reloaded.EncodingState)
	}
}

func TestClaimReadyReturnsNilWhenEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	claimed, err := store.ClaimReady(context.Background(), session.StageScript, "script")
	if err != nil {
		t.Fatalf("ClaimReady failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil claim, got session %d", claimed.ID)
	}
}

func TestClaimReadyIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const sessions = 3
	for i := 0; i < sessions; i++ {
		if _, err := store.Create(ctx, fmt.Sprintf("videos/%d/v.mp4", i)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	const workers = 8
	var (
		mu      sync.Mutex
		claimed []int64
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				sess, err := store.ClaimReady(ctx, session.StageEncoding, fmt.Sprintf("worker-%d", worker))
				if err != nil {
					t.Errorf("ClaimReady failed: %v", err)
					return
				}
				if sess == nil {
					return
				}
				mu.Lock()
				claimed = append(claimed, sess.ID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(claimed) != sessions {
		t.Fatalf("claimed %d sessions, want %d", len(claimed), sessions)
	}
	seen := map[int64]bool{}
	for _, id := range claimed {
		if seen[id] {
			t.Fatalf("session %d claimed twice", id)
		}
		seen[id] = true
	}
}

func TestCommitAppliesMutation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess, err := store.Create(ctx, "videos/7/origin.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.ClaimReady(ctx, session.StageEncoding, "encoding"); err != nil {
		t.Fatalf("ClaimReady failed: %v", err)
	}

	err = store.Commit(ctx, sess.ID, session.Mutation{
		SourceVideoURL:   session.StringPtr("work/download/origin.mp4"),
		EncodingVideoURL: session.StringPtr("videos/7/encoded_origin.mp4"),
		EncodingState:    session.StatePtr(session.StateDone),
		ScriptState:      session.StatePtr(session.StateReady),
		ClearClaim:       true,
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	updated, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.EncodingState != session.StateDone || updated.ScriptState != session.StateReady {
		t.Fatalf("states = %s/%s, want DONE/READY", updated.EncodingState, updated.ScriptState)
	}
	if updated.EncodingVideoURL != "videos/7/encoded_origin.mp4" {
		t.Fatalf("encoding url = %q", updated.EncodingVideoURL)
	}
	if updated.SourceVideoURL != "work/download/origin.mp4" {
		t.Fatalf("source url = %q", updated.SourceVideoURL)
	}
	if updated.ClaimedBy != "" || updated.ClaimedAt != nil {
		t.Fatalf("claim not cleared: by=%q at=%v", updated.ClaimedBy, updated.ClaimedAt)
	}
	if updated.AnalyzeState != session.StateNone {
		t.Fatalf("analyze state changed unexpectedly: %s", updated.AnalyzeState)
	}
}

func TestCommitUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.Commit(context.Background(), 999, session.Mutation{
		EncodingState: session.StatePtr(session.StateError),
	})
	if !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResetErrorRequiresErrorState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.SeedSession(t, store, "videos/9/v.mp4", map[session.Stage]session.StageState{
		session.StageEncoding: session.StateError,
	})
	if err := store.Commit(ctx, sess.ID, session.Mutation{ErrorMessage: session.StringPtr("ffmpeg exploded")}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := store.ResetError(ctx, sess.ID, session.StageEncoding); err != nil {
		t.Fatalf("ResetError failed: %v", err)
	}
	reloaded, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.EncodingState != session.StateReady {
		t.Fatalf("encoding state = %s, want READY", reloaded.EncodingState)
	}
	if reloaded.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %q", reloaded.ErrorMessage)
	}

	if err := store.ResetError(ctx, sess.ID, session.StageEncoding); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second reset, got %v", err)
	}
}

func TestReclaimStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess, err := store.Create(ctx, "videos/11/v.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.ClaimReady(ctx, session.StageEncoding, "encoding"); err != nil {
		t.Fatalf("ClaimReady failed: %v", err)
	}

	// TTL zero disables reclaiming entirely.
	if n, err := store.ReclaimStale(ctx, 0); err != nil || n != 0 {
		t.Fatalf("ReclaimStale(0) = %d, %v", n, err)
	}

	time.Sleep(20 * time.Millisecond)
	n, err := store.ReclaimStale(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed %d claims, want 1", n)
	}

	reloaded, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.EncodingState != session.StateReady {
		t.Fatalf("encoding state = %s, want READY", reloaded.EncodingState)
	}
}

func TestStatsCountsPerStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedSession(t, store, "videos/1/v.mp4", nil)
	testsupport.SeedSession(t, store, "videos/2/v.mp4", map[session.Stage]session.StageState{
		session.StageEncoding: session.StateDone,
		session.StageScript:   session.StateReady,
	})
	testsupport.SeedSession(t, store, "videos/3/v.mp4", map[session.Stage]session.StageState{
		session.StageEncoding: session.StateError,
	})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total = %d, want 3", stats.Total)
	}
	if got := stats.CountOf(session.StageEncoding, session.StateReady); got != 1 {
		t.Fatalf("encoding READY = %d, want 1", got)
	}
	if got := stats.CountOf(session.StageEncoding, session.StateDone); got != 1 {
		t.Fatalf("encoding DONE = %d, want 1", got)
	}
	if got := stats.CountOf(session.StageScript, session.StateReady); got != 1 {
		t.Fatalf("script READY = %d, want 1", got)
	}
	if got := stats.CountOf(session.StageAnalyze, session.StateNone); got != 3 {
		t.Fatalf("analyze NONE = %d, want 3", got)
	}
}

func TestListByStageState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedSession(t, store, "videos/1/v.mp4", nil)
	ready := testsupport.SeedSession(t, store, "videos/2/v.mp4", map[session.Stage]session.StageState{
		session.StageEncoding: session.StateDone,
		session.StageScript:   session.StateReady,
	})

	sessions, err := store.ListByStageState(ctx, session.StageScript, session.StateReady)
	if err != nil {
		t.Fatalf("ListByStageState failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != ready.ID {
		t.Fatalf("sessions = %+v, want only %d", sessions, ready.ID)
	}
}
