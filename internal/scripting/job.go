// Package scripting implements the second pipeline stage: splitting a
// session's audio, transcribing it, resolving speaker roles, and publishing
// the finished script.
package scripting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"scriptflow/internal/config"
	"scriptflow/internal/llm"
	"scriptflow/internal/logging"
	"scriptflow/internal/media"
	"scriptflow/internal/notify"
	"scriptflow/internal/objectstore"
	"scriptflow/internal/services"
	"scriptflow/internal/session"
	"scriptflow/internal/transcript"
)

// JobName identifies this job in claims, logs, and error messages.
const JobName = "script"

// Transcriber turns audio chunks into labelled transcript records.
type Transcriber interface {
	Transcribe(ctx context.Context, chunks []media.Chunk) ([]transcript.Record, error)
}

// RoleClassifier decides whether the session's first voice is the child.
type RoleClassifier interface {
	IsFirstSpeakerChild(ctx context.Context, records []transcript.Record) (llm.SpeakerRole, error)
}

// Job claims one script-ready session per run and produces its transcript.
type Job struct {
	cfg         *config.Config
	store       *session.Store
	blobs       objectstore.Store
	splitter    media.Splitter
	transcriber Transcriber
	classifier  RoleClassifier
	notifier    notify.Service
	logger      *slog.Logger
}

// NewJob wires the script stage.
func NewJob(
	cfg *config.Config,
	store *session.Store,
	blobs objectstore.Store,
	splitter media.Splitter,
	transcriber Transcriber,
	classifier RoleClassifier,
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
		cfg:         cfg,
		store:       store,
		blobs:       blobs,
		splitter:    splitter,
		transcriber: transcriber,
		classifier:  classifier,
		notifier:    notifier,
		logger:      logger,
	}
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return JobName }

// Run claims at most one READY session and transcribes it. A session claimed
// before its encoded source exists is left in START rather than failed, which
// keeps it out of the READY pool so other sessions keep flowing; the stale
// lease reclaim returns it to READY once encoding has had time to catch up.
func (j *Job) Run(ctx context.Context) error {
	ctx = services.WithJob(ctx, JobName)

	sess, err := j.store.ClaimReady(ctx, session.StageScript, JobName)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	ctx = services.WithSessionID(ctx, sess.ID)
	logger := logging.NewComponentLogger(ctx, j.logger, JobName)

	if sess.SourceVideoURL == "" {
		logger.Warn("claimed session has no source video yet, leaving claim for lease reclaim")
		return nil
	}

	logger.Info("transcribing session", logging.String("source", sess.SourceVideoURL))
	if err := j.process(ctx, sess, logger); err != nil {
		return j.fail(ctx, sess, logger, err)
	}
	return nil
}

func (j *Job) process(ctx context.Context, sess *session.Session, logger *slog.Logger) error {
	splitDir := filepath.Join(j.cfg.Paths.SplitDir, fmt.Sprintf("session_%d", sess.ID))
	defer func() { _ = os.RemoveAll(splitDir) }()

	chunks, err := j.splitter.Split(ctx, sess.SourceVideoURL, splitDir)
	if err != nil {
		return err
	}
	logger.Info("audio split", logging.Int("chunks", len(chunks)))

	records, err := j.transcriber.Transcribe(ctx, chunks)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return services.Wrap(services.ErrValidation, JobName, "transcribe", "transcript is empty", nil)
	}

	role, err := j.classifier.IsFirstSpeakerChild(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("speaker roles resolved",
		logging.Bool("first_speaker_is_child", role.FirstSpeakerIsChild),
		logging.Float64("confidence", role.Confidence))

	resolved := transcript.ResolveRoles(records, role.FirstSpeakerIsChild)
	encoded, err := transcript.Encode(resolved)
	if err != nil {
		return err
	}

	scriptKey := path.Join(path.Dir(sess.OriginVideoURL), fmt.Sprintf("%d.json", sess.ID))
	if err := j.blobs.PutBytes(ctx, scriptKey, encoded); err != nil {
		return err
	}

	err = j.store.Commit(ctx, sess.ID, session.Mutation{
		SourceScriptURL: session.StringPtr(scriptKey),
		ScriptState:     session.StatePtr(session.StateDone),
		AnalyzeState:    session.StatePtr(session.StateReady),
		ClearClaim:      true,
	})
	if err != nil {
		return err
	}

	logger.Info("script published",
		logging.String("script", scriptKey),
		logging.Int("records", len(resolved)))
	for _, event := range []notify.Event{notify.EventScriptDone, notify.EventAnalyzeReady} {
		if notifyErr := j.notifier.Publish(ctx, event, notify.Payload{
			"session_id": sess.ID,
			"script":     scriptKey,
		}); notifyErr != nil {
			logger.Warn("failed to publish notification",
				logging.String("event", string(event)),
				logging.Error(notifyErr))
		}
	}
	return nil
}

func (j *Job) fail(ctx context.Context, sess *session.Session, logger *slog.Logger, cause error) error {
	logger.Error("script stage failed", logging.Error(cause))

	commitErr := j.store.Commit(ctx, sess.ID, session.Mutation{
		ScriptState:  session.StatePtr(session.StateError),
		ErrorMessage: session.StringPtr(cause.Error()),
		ClearClaim:   true,
	})
	if commitErr != nil {
		logger.Error("failed to record script error", logging.Error(commitErr))
	}
	if notifyErr := j.notifier.Publish(ctx, notify.EventStageFailed, notify.Payload{
		"session_id": sess.ID,
		"stage":      string(session.StageScript),
		"error":      cause.Error(),
	}); notifyErr != nil {
		logger.Warn("failed to publish failure notification", logging.Error(notifyErr))
	}
	return cause
}
