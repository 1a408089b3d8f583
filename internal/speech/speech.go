// Package speech describes the speech-to-text collaborator and the transcript
// metrics the interview keeps about spoken answers.
package speech

import (
	"context"
	"strings"
	"unicode"
)

// DefaultMIMEType is what browser recorders typically hand over.
const DefaultMIMEType = "audio/webm"

// Transcriber turns a recorded answer into text. An empty transcript is a
// valid silent answer, not an error; failures wrap faults.ErrTranscriptionFailed.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

var fillers = map[string]struct{}{
	"um":  {},
	"umm": {},
	"uh":  {},
	"uhh": {},
	"er":  {},
	"erm": {},
	"ah":  {},
	"hmm": {},
}

var fillerPhrases = []string{"you know", "i mean", "kind of", "sort of"}

// CountFillers returns how many filler words and phrases a transcript contains.
func CountFillers(transcript string) int {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	count := 0
	for _, w := range words {
		if _, ok := fillers[w]; ok {
			count++
		}
	}

	joined := " " + strings.Join(words, " ") + " "
	for _, phrase := range fillerPhrases {
		count += strings.Count(joined, " "+phrase+" ")
	}

	return count
}
