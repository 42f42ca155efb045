package encoding_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"scriptflow/internal/encoding"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/session"
	"scriptflow/internal/testsupport"
)

type fakeTranscoder struct {
	err    error
	inputs []string
}

func (f *fakeTranscoder) Transcode(_ context.Context, inputPath, outputPath string) error {
	f.inputs = append(f.inputs, inputPath)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("encoded video"), 0o644)
}

func TestRunEncodesClaimedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	ctx := context.Background()

	if err := blobs.PutBytes(ctx, "videos/12/session.mp4", []byte("origin video")); err != nil {
		t.Fatalf("seed origin: %v", err)
	}
	sess, err := store.Create(ctx, "videos/12/session.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	transcoder := &fakeTranscoder{}
	job := encoding.NewJob(cfg, store, blobs, transcoder, nil, nil)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	updated, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.EncodingState != session.StateDone {
		t.Fatalf("encoding state = %s, want DONE", updated.EncodingState)
	}
	if updated.ScriptState != session.StateReady {
		t.Fatalf("script state = %s, want READY", updated.ScriptState)
	}
	if updated.EncodingVideoURL != "videos/12/encoded_session.mp4" {
		t.Fatalf("encoding url = %q", updated.EncodingVideoURL)
	}
	if updated.SourceVideoURL == "" {
		t.Fatal("source video url not recorded")
	}
	if updated.ClaimedAt != nil {
		t.Fatal("claim not cleared")
	}

	// The encoded object is published under the origin's directory.
	if _, err := blobs.Stat(ctx, "videos/12/encoded_session.mp4"); err != nil {
		t.Fatalf("encoded object missing: %v", err)
	}
	// The download survives as the script stage's input.
	if _, err := os.Stat(updated.SourceVideoURL); err != nil {
		t.Fatalf("downloaded source missing: %v", err)
	}
	if len(transcoder.inputs) != 1 || !strings.Contains(transcoder.inputs[0], "session.mp4") {
		t.Fatalf("transcoder inputs = %v", transcoder.inputs)
	}
}

func TestRunRecordsErrorOnTranscodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	ctx := context.Background()

	if err := blobs.PutBytes(ctx, "videos/3/v.mp4", []byte("origin")); err != nil {
		t.Fatalf("seed origin: %v", err)
	}
	sess, err := store.Create(ctx, "videos/3/v.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job := encoding.NewJob(cfg, store, blobs, &fakeTranscoder{err: errors.New("codec missing")}, nil, nil)
	if err := job.Run(ctx); err == nil {
		t.Fatal("expected run error")
	}

	updated, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.EncodingState != session.StateError {
		t.Fatalf("encoding state = %s, want ERROR", updated.EncodingState)
	}
	if !strings.Contains(updated.ErrorMessage, "codec missing") {
		t.Fatalf("error message = %q", updated.ErrorMessage)
	}
	if updated.ScriptState != session.StateNone {
		t.Fatalf("script state advanced unexpectedly: %s", updated.ScriptState)
	}
	if updated.ClaimedAt != nil {
		t.Fatal("claim not cleared on failure")
	}
}

func TestRunRecordsErrorWhenOriginMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	ctx := context.Background()

	sess, err := store.Create(ctx, "videos/404/missing.mp4")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job := encoding.NewJob(cfg, store, blobs, &fakeTranscoder{}, nil, nil)
	if err := job.Run(ctx); err == nil {
		t.Fatal("expected run error")
	}

	updated, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.EncodingState != session.StateError {
		t.Fatalf("encoding state = %s, want ERROR", updated.EncodingState)
	}
}

func TestRunNoopWhenNothingReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	transcoder := &fakeTranscoder{}
	job := encoding.NewJob(cfg, store, blobs, transcoder, nil, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(transcoder.inputs) != 0 {
		t.Fatalf("transcoder invoked with nothing claimed: %v", transcoder.inputs)
	}
}

func TestRunProcessesOneSessionPerTick(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"videos/1/a.mp4", "videos/2/b.mp4"} {
		if err := blobs.PutBytes(ctx, key, []byte("origin")); err != nil {
			t.Fatalf("seed origin: %v", err)
		}
		if _, err := store.Create(ctx, key); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	transcoder := &fakeTranscoder{}
	job := encoding.NewJob(cfg, store, blobs, transcoder, nil, nil)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(transcoder.inputs) != 1 {
		t.Fatalf("one run processed %d sessions, want 1", len(transcoder.inputs))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got := stats.CountOf(session.StageEncoding, session.StateReady); got != 1 {
		t.Fatalf("remaining READY = %d, want 1", got)
	}
}
