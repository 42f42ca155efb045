// Package llm talks to an OpenAI-compatible chat completion API and exposes
// the one classification the pipeline needs: deciding whether the first voice
// in a session belongs to the child or the therapist.
package llm
