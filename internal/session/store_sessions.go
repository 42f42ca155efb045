package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"scriptflow/internal/services"
)

// Create inserts a new session for the given origin video and returns it. The
// encoding stage starts READY; script and analyze start NONE.
func (s *Store) Create(ctx context.Context, originVideoURL string) (*Session, error) {
	ctx = ensureContext(ctx)
	originVideoURL = strings.TrimSpace(originVideoURL)
	if originVideoURL == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "create", "origin video url is required", nil)
	}

	now := nowString()
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`INSERT INTO sessions (origin_video_url, encoding_state, script_state, analyze_state, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			originVideoURL, StateReady.code(), StateNone.code(), StateNone.code(), now, now,
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single session.
func (s *Store) GetByID(ctx context.Context, id int64) (*Session, error) {
	ctx = ensureContext(ctx)
	var sess *Session
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
		var scanErr error
		sess, scanErr = scanSession(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

// List returns all sessions ordered by id.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	return s.list(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY id")
}

// ListByStageState returns sessions whose given stage is in the given state,
// ordered by id.
func (s *Store) ListByStageState(ctx context.Context, stage Stage, state StageState) ([]*Session, error) {
	if !stage.Valid() {
		return nil, services.Wrapf(services.ErrValidation, "session", "list", nil, "unknown stage %q", stage)
	}
	if !state.Valid() {
		return nil, services.Wrapf(services.ErrValidation, "session", "list", nil, "unknown state %q", state)
	}
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s = ? ORDER BY id", sessionColumns, stage.column())
	return s.list(ctx, query, state.code())
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Session, error) {
	ctx = ensureContext(ctx)
	var sessions []*Session
	err := retryOnBusy(ctx, func() error {
		rows, queryErr := s.db.QueryContext(ctx, query, args...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		sessions = sessions[:0]
		for rows.Next() {
			sess, scanErr := scanSession(rows)
			if scanErr != nil {
				return scanErr
			}
			sessions = append(sessions, sess)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Stats counts sessions per stage and state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{
		Encoding: map[StageState]int64{},
		Script:   map[StageState]int64{},
		Analyze:  map[StageState]int64{},
	}
	err := retryOnBusy(ctx, func() error {
		rows, queryErr := s.db.QueryContext(ctx,
			`SELECT encoding_state, script_state, analyze_state FROM sessions`)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		stats.Total = 0
		clear(stats.Encoding)
		clear(stats.Script)
		clear(stats.Analyze)
		for rows.Next() {
			var encoding, script, analyze int
			if scanErr := rows.Scan(&encoding, &script, &analyze); scanErr != nil {
				return scanErr
			}
			encodingState, stateErr := stateFromCode(encoding)
			if stateErr != nil {
				return stateErr
			}
			scriptState, stateErr := stateFromCode(script)
			if stateErr != nil {
				return stateErr
			}
			analyzeState, stateErr := stateFromCode(analyze)
			if stateErr != nil {
				return stateErr
			}
			stats.Total++
			stats.Encoding[encodingState]++
			stats.Script[scriptState]++
			stats.Analyze[analyzeState]++
		}
		return rows.Err()
	})
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	return stats, nil
}

// Delete removes a session row.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if affected == 0 {
		return services.ErrSessionNotFound
	}
	return nil
}
