package llm

import (
	"context"
	"fmt"
	"strings"

	"scriptflow/internal/services"
	"scriptflow/internal/transcript"
)

// leadingRecordCount caps how much transcript the classifier sends. The
// opening minutes are enough to tell the child and therapist apart.
const leadingRecordCount = 20

const speakerRolePrompt = `You are analyzing the transcript of a play therapy session between a child and a therapist.
The transcript labels speakers SPEAKER_0 and SPEAKER_1. SPEAKER_0 is the first voice heard in the session.
Decide whether SPEAKER_0 is the child or the therapist. Therapists typically lead with open questions and
reflective statements; children answer briefly, narrate play, or change topics abruptly.
Respond with JSON only: {"first_speaker_is_child": true|false, "confidence": 0.0-1.0, "reason": "short explanation"}`

// SpeakerRole is the parsed classification result.
type SpeakerRole struct {
	FirstSpeakerIsChild bool    `json:"first_speaker_is_child"`
	Confidence          float64 `json:"confidence"`
	Reason              string  `json:"reason"`
}

// Classifier decides which raw speaker label belongs to the child.
type Classifier struct {
	client *Client
}

// NewClassifier wraps a chat client.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// IsFirstSpeakerChild sends the leading transcript records to the model and
// reports whether SPEAKER_0 is the child.
func (c *Classifier) IsFirstSpeakerChild(ctx context.Context, records []transcript.Record) (SpeakerRole, error) {
	var empty SpeakerRole
	if len(records) == 0 {
		return empty, services.Wrap(services.ErrValidation, "llm", "classify", "no transcript records", nil)
	}

	var prompt strings.Builder
	for _, record := range transcript.Leading(records, leadingRecordCount) {
		fmt.Fprintf(&prompt, "[%s] %s: %s\n", record.StartTime, record.Speaker, record.Text)
	}

	content, err := c.client.CompleteJSON(ctx, speakerRolePrompt, prompt.String())
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "llm", "classify", "complete", err)
	}

	var parsed SpeakerRole
	if err := DecodeJSON(content, &parsed); err != nil {
		return empty, services.Wrap(services.ErrValidation, "llm", "classify", "parse payload", err)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	parsed.Reason = strings.TrimSpace(parsed.Reason)
	return parsed, nil
}
