// Package encoding implements the first pipeline stage: transcoding a
// session's origin video into the delivery format and publishing it back to
// the object store.
package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"scriptflow/internal/config"
	"scriptflow/internal/logging"
	"scriptflow/internal/media"
	"scriptflow/internal/notify"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/services"
	"scriptflow/internal/session"
)

// JobName identifies this job in claims, logs, and error messages.
const JobName = "encoding"

// encodedPrefix is prepended to the origin file name for the published video.
const encodedPrefix = "encoded_"

// Job claims one encoding-ready session per run and transcodes it.
type Job struct {
	cfg        *config.Config
	store      *session.Store
	blobs      objectstore.Store
	transcoder media.Transcoder
	notifier   notify.Service
	logger     *slog.Logger
}

// NewJob wires the encoding stage.
func NewJob(
	cfg *config.Config,
	store *session.Store,
	blobs objectstore.Store,
	transcoder media.Transcoder,
	notifier notify.Service,
	logger *slog.Logger,
) *Job {
	if notifier == nil {
		notifier = notify.NewNoop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Job{
		cfg:        cfg,
		store:      store,
		blobs:      blobs,
		transcoder: transcoder,
		notifier:   notifier,
		logger:     logger,
	}
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return JobName }

// Run claims at most one READY session, processes it, and commits the
// outcome. A run with nothing to claim is not an error.
func (j *Job) Run(ctx context.Context) error {
	ctx = services.WithJob(ctx, JobName)

	sess, err := j.store.ClaimReady(ctx, session.StageEncoding, JobName)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	ctx = services.WithSessionID(ctx, sess.ID)
	logger := logging.NewComponentLogger(ctx, j.logger, JobName)
	logger.Info("processing session", logging.String("origin", sess.OriginVideoURL))

	if err := j.process(ctx, sess, logger); err != nil {
		return j.fail(ctx, sess, logger, err)
	}
	return nil
}

func (j *Job) process(ctx context.Context, sess *session.Session, logger *slog.Logger) error {
	originBase := path.Base(sess.OriginVideoURL)
	downloadPath := filepath.Join(j.cfg.DownloadDir(), fmt.Sprintf("%d_%s", sess.ID, originBase))
	if err := j.blobs.Get(ctx, sess.OriginVideoURL, downloadPath); err != nil {
		return err
	}
	logger.Info("origin downloaded", logging.String("path", downloadPath))

	encodedPath := filepath.Join(j.cfg.EncodingDir(), fmt.Sprintf("%d_%s%s", sess.ID, encodedPrefix, originBase))
	if err := j.transcoder.Transcode(ctx, downloadPath, encodedPath); err != nil {
		return err
	}

	encodedKey := path.Join(path.Dir(sess.OriginVideoURL), encodedPrefix+originBase)
	encodedFile, err := os.Open(encodedPath)
	if err != nil {
		return services.Wrap(services.ErrUploadFailed, JobName, "upload", "open encoded file", err)
	}
	uploadErr := j.blobs.Put(ctx, encodedKey, encodedFile)
	_ = encodedFile.Close()
	if uploadErr != nil {
		return uploadErr
	}
	// The local encode is published; the download stays on disk as the
	// script stage's audio source.
	_ = os.Remove(encodedPath)

	err = j.store.Commit(ctx, sess.ID, session.Mutation{
		SourceVideoURL:   session.StringPtr(downloadPath),
		EncodingVideoURL: session.StringPtr(encodedKey),
		EncodingState:    session.StatePtr(session.StateDone),
		ScriptState:      session.StatePtr(session.StateReady),
		ClearClaim:       true,
	})
	if err != nil {
		return err
	}

	logger.Info("session encoded", logging.String("encoded", encodedKey))
	if notifyErr := j.notifier.Publish(ctx, notify.EventEncodingDone, notify.Payload{
		"session_id": sess.ID,
		"encoded":    encodedKey,
	}); notifyErr != nil {
		logger.Warn("failed to publish encoding notification", logging.Error(notifyErr))
	}
	return nil
}

func (j *Job) fail(ctx context.Context, sess *session.Session, logger *slog.Logger, cause error) error {
	logger.Error("encoding failed", logging.Error(cause))

	commitErr := j.store.Commit(ctx, sess.ID, session.Mutation{
		EncodingState: session.StatePtr(session.StateError),
		ErrorMessage:  session.StringPtr(cause.Error()),
		ClearClaim:    true,
	})
	if commitErr != nil {
		logger.Error("failed to record encoding error", logging.Error(commitErr))
	}
	if notifyErr := j.notifier.Publish(ctx, notify.EventStageFailed, notify.Payload{
		"session_id": sess.ID,
		"stage":      string(session.StageEncoding),
		"error":      cause.Error(),
	}); notifyErr != nil {
		logger.Warn("failed to publish failure notification", logging.Error(notifyErr))
	}
	return cause
}
