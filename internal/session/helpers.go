package session

import (
	"database/sql"
	"errors"
	"time"
)

const sessionColumns = "id, origin_video_url, source_video_url, encoding_video_url, source_script_url, encoding_state, script_state, analyze_state, error_message, claimed_by, claimed_at, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id           int64
		originURL    string
		sourceURL    sql.NullString
		encodedURL   sql.NullString
		scriptURL    sql.NullString
		encodingCode int
		scriptCode   int
		analyzeCode  int
		errorMessage sql.NullString
		claimedBy    sql.NullString
		claimedAtRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&originURL,
		&sourceURL,
		&encodedURL,
		&scriptURL,
		&encodingCode,
		&scriptCode,
		&analyzeCode,
		&errorMessage,
		&claimedBy,
		&claimedAtRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	encodingState, err := stateFromCode(encodingCode)
	if err != nil {
		return nil, err
	}
	scriptState, err := stateFromCode(scriptCode)
	if err != nil {
		return nil, err
	}
	analyzeState, err := stateFromCode(analyzeCode)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:               id,
		OriginVideoURL:   originURL,
		SourceVideoURL:   sourceURL.String,
		EncodingVideoURL: encodedURL.String,
		SourceScriptURL:  scriptURL.String,
		EncodingState:    encodingState,
		ScriptState:      scriptState,
		AnalyzeState:     analyzeState,
		ErrorMessage:     errorMessage.String,
		ClaimedBy:        claimedBy.String,
	}

	if claimedAtRaw.Valid {
		if claimed, err := parseTimeString(claimedAtRaw.String); err == nil {
			sess.ClaimedAt = &claimed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sess.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sess.UpdatedAt = updated
	}
	return sess, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width, unlike RFC3339Nano which trims trailing zeros,
// so stored timestamps compare correctly as strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func nowString() string {
	return time.Now().UTC().Format(timeLayout)
}
