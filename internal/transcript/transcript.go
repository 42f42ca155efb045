// Package transcript models the session transcript produced by the script
// stage: timed utterances with speaker labels, plus the remapping of raw
// diarization labels onto child and therapist roles.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"scriptflow/internal/services"
)

// Raw diarization labels assigned during transcription. The first voice heard
// in a session becomes SpeakerPrimary; everyone else SpeakerSecondary.
const (
	SpeakerPrimary   = "SPEAKER_0"
	SpeakerSecondary = "SPEAKER_1"
)

// Role labels written to the final script.
const (
	RoleChild     = "C"
	RoleTherapist = "T"
)

// Record is one transcribed utterance.
type Record struct {
	Text      string `json:"text"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Speaker   string `json:"speaker"`
}

// FormatTimestamp renders an offset from session start as HH:MM:SS. Negative
// offsets clamp to zero; hours may exceed two digits for very long sessions.
func FormatTimestamp(offset time.Duration) string {
	if offset < 0 {
		offset = 0
	}
	total := int64(offset / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ResolveRoles maps raw speaker labels onto C and T. When firstSpeakerIsChild
// is true SpeakerPrimary becomes the child, otherwise the therapist. Labels
// outside the two known values are left untouched.
func ResolveRoles(records []Record, firstSpeakerIsChild bool) []Record {
	primary, secondary := RoleTherapist, RoleChild
	if firstSpeakerIsChild {
		primary, secondary = RoleChild, RoleTherapist
	}

	resolved := make([]Record, len(records))
	for i, record := range records {
		switch record.Speaker {
		case SpeakerPrimary:
			record.Speaker = primary
		case SpeakerSecondary:
			record.Speaker = secondary
		}
		resolved[i] = record
	}
	return resolved
}

// Leading returns at most n records from the front of the transcript.
func Leading(records []Record, n int) []Record {
	if n < 0 {
		n = 0
	}
	if len(records) <= n {
		return records
	}
	return records[:n]
}

// Encode serializes the script artifact: an indented JSON array of records.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcript", "encode", "serialize script", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a serialized script artifact.
func Decode(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcript", "decode", "parse script", err)
	}
	return records, nil
}
