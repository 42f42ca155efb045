package main

import (
	"log/slog"
	"time"

	"scriptflow/internal/config"
	"scriptflow/internal/encoding"
	"scriptflow/internal/llm"
	"scriptflow/internal/media"
	"scriptflow/internal/notify"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/scheduler"
	"scriptflow/internal/scripting"
	"scriptflow/internal/session"
	"scriptflow/internal/stt"
)

// buildScheduler wires every capability into the two pipeline jobs and
// returns the scheduler that drives them, together with the blob store the
// monitor API shares and the notifier to close on shutdown.
func buildScheduler(cfg *config.Config, store *session.Store, logger *slog.Logger) (*scheduler.Scheduler, objectstore.Store, notify.Service, error) {
	blobs, err := objectstore.NewFS(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	notifier, err := notify.NewService(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	transcoder := media.NewTranscoder(cfg.FFmpegBinary())
	splitter := media.NewSplitter(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.STT.ChunkSeconds)

	engine, err := stt.NewHTTPEngine(cfg.STT.EngineURL, time.Duration(cfg.STT.RequestTimeout)*time.Second)
	if err != nil {
		_ = notifier.Close()
		return nil, nil, nil, err
	}
	verifier, err := stt.NewHTTPVerifier(cfg.STT.VerifierURL, time.Duration(cfg.STT.RequestTimeout)*time.Second)
	if err != nil {
		_ = notifier.Close()
		return nil, nil, nil, err
	}
	transcriber := stt.NewTranscriber(engine, verifier, cfg.STT.Language, cfg.STT.SimilarityThreshold, logger)

	classifier := llm.NewClassifier(llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}))

	encodingJob := encoding.NewJob(cfg, store, blobs, transcoder, notifier, logger)
	scriptJob := scripting.NewJob(cfg, store, blobs, splitter, transcriber, classifier, notifier, logger)

	entries := []scheduler.Entry{
		{Job: encodingJob, Interval: time.Duration(cfg.Workflow.EncodingInterval) * time.Second},
		{Job: scriptJob, Interval: time.Duration(cfg.Workflow.ScriptInterval) * time.Second},
	}
	leaseTTL := time.Duration(cfg.Workflow.ClaimLeaseTTL) * time.Second
	return scheduler.New(store, entries, leaseTTL, logger), blobs, notifier, nil
}
