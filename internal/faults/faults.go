// Package faults holds the error taxonomy shared by the interview core and its
// collaborators. Callers match with errors.Is; producers wrap with %w.
package faults

import "errors"

var (
	// Local, non-retryable.
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")

	// External collaborators. Retried with backoff, then surfaced as ErrCollaboratorTimeout.
	ErrCollaboratorTimeout = errors.New("collaborator timeout")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrRateLimited         = errors.New("rate limited")

	// Degraded mode: the session keeps going.
	ErrGenerationExhausted = errors.New("question generation exhausted")
	ErrEvaluationFailed    = errors.New("evaluation failed")

	// Surfaced to the caller, the session stays usable.
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Retryable reports whether err is a transient collaborator failure worth another
// attempt. Anything already marked as a timeout is final.
func Retryable(err error) bool {
	if errors.Is(err, ErrCollaboratorTimeout) {
		return false
	}
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrRateLimited)
}

// Degraded reports whether err should be absorbed by the session instead of aborting it.
func Degraded(err error) bool {
	return errors.Is(err, ErrGenerationExhausted) || errors.Is(err, ErrEvaluationFailed)
}
