package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scriptflow/internal/services"
)

// ClaimReady atomically selects the oldest session whose given stage is READY
// and moves that stage to START, recording the claimant and claim time. It
// returns nil when no session is ready.
func (s *Store) ClaimReady(ctx context.Context, stage Stage, claimedBy string) (*Session, error) {
	if !stage.Valid() {
		return nil, services.Wrapf(services.ErrValidation, "session", "claim", nil, "unknown stage %q", stage)
	}
	ctx = ensureContext(ctx)
	column := stage.column()

	var claimed *Session
	err := retryOnBusy(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			fmt.Sprintf("SELECT %s FROM sessions WHERE %s = ? ORDER BY id LIMIT 1", sessionColumns, column),
			StateReady.code(),
		)
		sess, scanErr := scanSession(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			claimed = nil
			return tx.Commit()
		}
		if scanErr != nil {
			return scanErr
		}

		now := nowString()
		res, execErr := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE sessions SET %s = ?, claimed_by = ?, claimed_at = ?, updated_at = ? WHERE id = ? AND %s = ?", column, column),
			StateStart.code(), nullableString(claimedBy), now, now, sess.ID, StateReady.code(),
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			// Lost the race inside this transaction window; treat as empty.
			claimed = nil
			return tx.Commit()
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return commitErr
		}

		switch stage {
		case StageEncoding:
			sess.EncodingState = StateStart
		case StageScript:
			sess.ScriptState = StateStart
		case StageAnalyze:
			sess.AnalyzeState = StateStart
		}
		sess.ClaimedBy = claimedBy
		claimTime, _ := parseTimeString(now)
		sess.ClaimedAt = &claimTime
		claimed = sess
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim %s session: %w", stage, err)
	}
	return claimed, nil
}

// Commit applies a mutation to the session in one transaction. It is how jobs
// record both success (stage DONE plus artifact URLs plus next stage READY)
// and failure (stage ERROR plus message).
func (s *Store) Commit(ctx context.Context, id int64, mut Mutation) error {
	ctx = ensureContext(ctx)

	assignments := make([]string, 0, 8)
	args := make([]any, 0, 9)
	appendSet := func(column string, value any) {
		assignments = append(assignments, column+" = ?")
		args = append(args, value)
	}

	if mut.SourceVideoURL != nil {
		appendSet("source_video_url", nullableString(*mut.SourceVideoURL))
	}
	if mut.EncodingVideoURL != nil {
		appendSet("encoding_video_url", nullableString(*mut.EncodingVideoURL))
	}
	if mut.SourceScriptURL != nil {
		appendSet("source_script_url", nullableString(*mut.SourceScriptURL))
	}
	for _, stageState := range []struct {
		stage Stage
		state *StageState
	}{
		{StageEncoding, mut.EncodingState},
		{StageScript, mut.ScriptState},
		{StageAnalyze, mut.AnalyzeState},
	} {
		if stageState.state == nil {
			continue
		}
		if !stageState.state.Valid() {
			return services.Wrapf(services.ErrValidation, "session", "commit", nil,
				"invalid %s state %q", stageState.stage, *stageState.state)
		}
		appendSet(stageState.stage.column(), stageState.state.code())
	}
	if mut.ErrorMessage != nil {
		appendSet("error_message", nullableString(*mut.ErrorMessage))
	}
	if mut.ClearClaim {
		appendSet("claimed_by", nil)
		appendSet("claimed_at", nil)
	}
	if len(assignments) == 0 {
		return nil
	}
	appendSet("updated_at", nowString())
	args = append(args, id)

	query := "UPDATE sessions SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("commit session %d: %w", id, err)
	}
	if affected == 0 {
		return services.ErrSessionNotFound
	}
	return nil
}

// ResetError moves a stage from ERROR back to READY and clears the recorded
// message, so operators can retry a failed session.
func (s *Store) ResetError(ctx context.Context, id int64, stage Stage) error {
	if !stage.Valid() {
		return services.Wrapf(services.ErrValidation, "session", "reset", nil, "unknown stage %q", stage)
	}
	ctx = ensureContext(ctx)
	column := stage.column()

	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			fmt.Sprintf("UPDATE sessions SET %s = ?, error_message = NULL, updated_at = ? WHERE id = ? AND %s = ?", column, column),
			StateReady.code(), nowString(), id, StateError.code(),
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("reset session %d: %w", id, err)
	}
	if affected == 0 {
		return services.ErrSessionNotFound
	}
	return nil
}

// ReclaimStale returns stages stuck in START longer than ttl back to READY.
// A ttl of zero disables reclaiming. Returns the number of stage claims
// released.
func (s *Store) ReclaimStale(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-ttl).Format(timeLayout)

	var total int64
	for _, stage := range Stages() {
		column := stage.column()
		var affected int64
		err := retryOnBusy(ctx, func() error {
			res, execErr := s.db.ExecContext(ctx,
				fmt.Sprintf("UPDATE sessions SET %s = ?, claimed_by = NULL, claimed_at = NULL, updated_at = ? WHERE %s = ? AND claimed_at IS NOT NULL AND claimed_at < ?", column, column),
				StateReady.code(), nowString(), StateStart.code(), cutoff,
			)
			if execErr != nil {
				return execErr
			}
			affected, execErr = res.RowsAffected()
			return execErr
		})
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s claims: %w", stage, err)
		}
		total += affected
	}
	return total, nil
}
