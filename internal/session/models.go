package session

import (
	"fmt"
	"time"
)

// StageState is the lifecycle state of a single pipeline stage.
type StageState string

const (
	StateNone  StageState = "NONE"
	StateReady StageState = "READY"
	StateStart StageState = "START"
	StateDone  StageState = "DONE"
	StateError StageState = "ERROR"
)

// Valid reports whether the state is one of the known values.
func (s StageState) Valid() bool {
	switch s {
	case StateNone, StateReady, StateStart, StateDone, StateError:
		return true
	}
	return false
}

func (s StageState) String() string { return string(s) }

// ParseStageState converts a stored string into a StageState.
func ParseStageState(value string) (StageState, error) {
	state := StageState(value)
	if !state.Valid() {
		return "", fmt.Errorf("unknown stage state %q", value)
	}
	return state, nil
}

// Stage states persist as small integer codes.
const (
	codeNone = iota
	codeReady
	codeStart
	codeDone
	codeError
)

// code returns the integer persisted for this state. Callers must check Valid
// first; unknown states map to NONE's code.
func (s StageState) code() int {
	switch s {
	case StateReady:
		return codeReady
	case StateStart:
		return codeStart
	case StateDone:
		return codeDone
	case StateError:
		return codeError
	}
	return codeNone
}

func stateFromCode(code int) (StageState, error) {
	switch code {
	case codeNone:
		return StateNone, nil
	case codeReady:
		return StateReady, nil
	case codeStart:
		return StateStart, nil
	case codeDone:
		return StateDone, nil
	case codeError:
		return StateError, nil
	}
	return "", fmt.Errorf("unknown stage state code %d", code)
}

// Stage identifies one of the three pipeline stages a session moves through.
type Stage string

const (
	StageEncoding Stage = "encoding"
	StageScript   Stage = "script"
	StageAnalyze  Stage = "analyze"
)

// Stages lists all stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageEncoding, StageScript, StageAnalyze}
}

func (s Stage) Valid() bool {
	switch s {
	case StageEncoding, StageScript, StageAnalyze:
		return true
	}
	return false
}

func (s Stage) String() string { return string(s) }

// column returns the sessions table column holding this stage's state. Callers
// must check Valid first; the switch is exhaustive for valid stages.
func (s Stage) column() string {
	switch s {
	case StageEncoding:
		return "encoding_state"
	case StageScript:
		return "script_state"
	case StageAnalyze:
		return "analyze_state"
	}
	return ""
}

// Session is one therapy session row.
type Session struct {
	ID               int64
	OriginVideoURL   string
	SourceVideoURL   string
	EncodingVideoURL string
	SourceScriptURL  string
	EncodingState    StageState
	ScriptState      StageState
	AnalyzeState     StageState
	ErrorMessage     string
	ClaimedBy        string
	ClaimedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StateOf returns the session's state for the given stage.
func (s *Session) StateOf(stage Stage) StageState {
	switch stage {
	case StageEncoding:
		return s.EncodingState
	case StageScript:
		return s.ScriptState
	case StageAnalyze:
		return s.AnalyzeState
	}
	return StateNone
}

// Mutation describes the fields a Commit call should update. Nil pointers
// leave the corresponding column untouched.
type Mutation struct {
	SourceVideoURL   *string
	EncodingVideoURL *string
	SourceScriptURL  *string
	EncodingState    *StageState
	ScriptState      *StageState
	AnalyzeState     *StageState
	ErrorMessage     *string
	ClearClaim       bool
}

// StringPtr is a convenience for building Mutation values.
func StringPtr(value string) *string { return &value }

// StatePtr is a convenience for building Mutation values.
func StatePtr(state StageState) *StageState { return &state }

// Stats summarizes session counts per stage and state.
type Stats struct {
	Total    int64
	Encoding map[StageState]int64
	Script   map[StageState]int64
	Analyze  map[StageState]int64
}

func (s Stats) counts(stage Stage) map[StageState]int64 {
	switch stage {
	case StageEncoding:
		return s.Encoding
	case StageScript:
		return s.Script
	case StageAnalyze:
		return s.Analyze
	}
	return nil
}

// CountOf returns the number of sessions whose stage is in the given state.
func (s Stats) CountOf(stage Stage, state StageState) int64 {
	if m := s.counts(stage); m != nil {
		return m[state]
	}
	return 0
}
