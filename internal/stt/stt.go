// Package stt turns session audio chunks into speaker-labelled transcript
// records. An Engine service produces timed text segments per chunk; a
// Verifier service scores voice similarity against the session's first
// speaker so every segment gets a stable raw label.
package stt

import (
	"context"
	"log/slog"
	"time"

	"scriptflow/internal/logging"
	"scriptflow/internal/media"
	"scriptflow/internal/services"
	"scriptflow/internal/transcript"
)

// Segment is one timed utterance within a single audio chunk. Start and End
// are offsets from the chunk's beginning.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Engine transcribes one audio chunk.
type Engine interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]Segment, error)
}

// Verifier scores how closely a time range of candidate audio matches a
// reference range. Scores are in [0, 1].
type Verifier interface {
	Verify(ctx context.Context, reference, candidate AudioRange) (float64, error)
}

// AudioRange addresses a slice of an audio file.
type AudioRange struct {
	Path  string
	Start time.Duration
	End   time.Duration
}

// Transcriber composes Engine and Verifier into the full chunked
// transcription flow.
type Transcriber struct {
	engine    Engine
	verifier  Verifier
	language  string
	threshold float64
	logger    *slog.Logger
}

// NewTranscriber wires the transcription flow. threshold outside (0, 1]
// falls back to 0.6.
func NewTranscriber(engine Engine, verifier Verifier, language string, threshold float64, logger *slog.Logger) *Transcriber {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		engine:    engine,
		verifier:  verifier,
		language:  language,
		threshold: threshold,
		logger:    logger,
	}
}

// Transcribe runs every chunk through the engine and labels each segment.
// The first segment of the session defines the reference voice and is always
// SPEAKER_0; later segments are verified against it. When verification fails
// the segment keeps the reference label rather than aborting the session.
func (t *Transcriber) Transcribe(ctx context.Context, chunks []media.Chunk) ([]transcript.Record, error) {
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "stt", "transcribe", "no audio chunks", nil)
	}

	var records []transcript.Record
	var reference AudioRange
	haveReference := false

	for _, chunk := range chunks {
		segments, err := t.engine.Transcribe(ctx, chunk.Path, t.language)
		if err != nil {
			return nil, services.Wrapf(services.ErrTransient, "stt", "transcribe", err,
				"chunk %d", chunk.Index)
		}

		for _, segment := range segments {
			candidate := AudioRange{Path: chunk.Path, Start: segment.Start, End: segment.End}
			label := transcript.SpeakerPrimary
			if !haveReference {
				reference = candidate
				haveReference = true
			} else {
				label = t.labelFor(ctx, reference, candidate, chunk.Index)
			}

			records = append(records, transcript.Record{
				Text:      segment.Text,
				StartTime: transcript.FormatTimestamp(chunk.Offset + segment.Start),
				EndTime:   transcript.FormatTimestamp(chunk.Offset + segment.End),
				Speaker:   label,
			})
		}
	}
	return records, nil
}

func (t *Transcriber) labelFor(ctx context.Context, reference, candidate AudioRange, chunkIndex int) string {
	score, err := t.verifier.Verify(ctx, reference, candidate)
	if err != nil {
		t.logger.Warn("speaker verification failed, keeping reference label",
			logging.Int("chunk", chunkIndex),
			logging.Error(err))
		return transcript.SpeakerPrimary
	}
	if score >= t.threshold {
		return transcript.SpeakerPrimary
	}
	return transcript.SpeakerSecondary
}
