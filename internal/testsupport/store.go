package testsupport

import (
	"context"
	"testing"

	"scriptflow/internal/config"
	"scriptflow/internal/session"
)

// MustOpenStore opens a session store for the test config and closes it when
// the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.Store {
	t.Helper()
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// SeedSession creates a session and moves its stages into the given states.
func SeedSession(t testing.TB, store *session.Store, originURL string, states map[session.Stage]session.StageState) *session.Session {
	t.Helper()
	ctx := context.Background()

	sess, err := store.Create(ctx, originURL)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	mut := session.Mutation{}
	for stage, state := range states {
		switch stage {
		case session.StageEncoding:
			mut.EncodingState = session.StatePtr(state)
		case session.StageScript:
			mut.ScriptState = session.StatePtr(state)
		case session.StageAnalyze:
			mut.AnalyzeState = session.StatePtr(state)
		default:
			t.Fatalf("unknown stage %q", stage)
		}
	}
	if len(states) > 0 {
		if err := store.Commit(ctx, sess.ID, mut); err != nil {
			t.Fatalf("seed session %d: %v", sess.ID, err)
		}
	}

	seeded, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("reload session %d: %v", sess.ID, err)
	}
	return seeded
}
