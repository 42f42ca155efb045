package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scriptflow/internal/services"
)

func TestTranscodeBuildsExpectedArgs(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	tr := NewTranscoder("ffmpeg")
	tr.run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return nil, nil
	}

	out := filepath.Join(t.TempDir(), "encoded", "session.mp4")
	if err := tr.Transcode(context.Background(), "/work/download/session.mp4", out); err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	if gotBinary != "ffmpeg" {
		t.Fatalf("binary = %q", gotBinary)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"-c:v libx264",
		"-preset ultrafast",
		"-b:v 96k",
		"-r 24",
		"-c:a aac",
		"-b:a 72k",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if gotArgs[len(gotArgs)-1] != out {
		t.Fatalf("last arg = %q, want output path", gotArgs[len(gotArgs)-1])
	}
}

func TestTranscodeWrapsToolFailure(t *testing.T) {
	tr := NewTranscoder("")
	tr.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Unknown encoder 'libx264'"), errors.New("exit status 1")
	}

	err := tr.Transcode(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Fatalf("tool output missing from error: %v", err)
	}
}

func TestSplitProducesOrderedChunks(t *testing.T) {
	dir := t.TempDir()
	const chunkSeconds = 120
	const totalSeconds = 290 // 2 full chunks plus a 50s tail

	sp := NewSplitter("ffmpeg", "ffprobe", chunkSeconds)
	sp.run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		switch {
		case binary == "ffprobe":
			return []byte(fmt.Sprintf(`{"format":{"duration":"%d.000000"}}`, totalSeconds)), nil
		case strings.Contains(joined, "-f segment"):
			pattern := args[len(args)-1]
			for i := 0; i < 3; i++ {
				if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("mp3"), 0o644); err != nil {
					return nil, err
				}
			}
			return nil, nil
		default:
			// Audio extraction.
			return nil, os.WriteFile(args[len(args)-1], []byte("mp3"), 0o644)
		}
	}

	chunks, err := sp.Split(context.Background(), "/work/download/session.mp4", dir)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d index = %d", i, chunk.Index)
		}
		wantName := fmt.Sprintf("session_part_%03d.mp3", i)
		if filepath.Base(chunk.Path) != wantName {
			t.Errorf("chunk %d path = %q, want %q", i, filepath.Base(chunk.Path), wantName)
		}
		if chunk.Offset != time.Duration(i)*chunkSeconds*time.Second {
			t.Errorf("chunk %d offset = %v", i, chunk.Offset)
		}
	}
	if chunks[2].Duration != 50*time.Second {
		t.Fatalf("tail duration = %v, want 50s", chunks[2].Duration)
	}
}

func TestSplitFailsWhenNoChunks(t *testing.T) {
	sp := NewSplitter("", "", 0)
	if sp.ChunkSeconds() != 120 {
		t.Fatalf("default chunk seconds = %d", sp.ChunkSeconds())
	}
	sp.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if !strings.Contains(strings.Join(args, " "), "-f segment") {
			// Create the extracted audio so only segmentation misbehaves.
			return nil, os.WriteFile(args[len(args)-1], []byte("mp3"), 0o644)
		}
		return nil, nil
	}

	_, err := sp.Split(context.Background(), "session.mp4", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestDurationParsesProbeOutput(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{"duration":"123.456"}}`), nil
	}
	d, err := Duration(context.Background(), run, "ffprobe", "a.mp3")
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if want := 123456 * time.Millisecond; d != want {
		t.Fatalf("duration = %v, want %v", d, want)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	}
	if _, err := Duration(context.Background(), run, "ffprobe", "a.mp3"); err == nil {
		t.Fatal("expected parse error")
	}
}
