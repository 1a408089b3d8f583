package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/speech"
	"github.com/spigell/interview-agent/internal/utils"
)

const transcribeInstruction = "Transcribe this interview answer to plain English. Do NOT add anything extra. " +
	"If nothing is said, return an empty response."

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Transcriber sends recorded answers to a Gemini audio-capable model.
type Transcriber struct {
	models    contentModels
	model     string
	maxLogLen int
	logger    *zap.Logger
}

var _ speech.Transcriber = (*Transcriber)(nil)

// NewTranscriber shares the generator's client. An empty model reuses the generator's.
func NewTranscriber(g *Generator, model string) (*Transcriber, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = g.model
	}

	return &Transcriber{
		models:    g.client.Models,
		model:     model,
		maxLogLen: g.maxLogLen,
		logger:    g.logger,
	}, nil
}

// Transcribe implements speech.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: audio payload is empty", faults.ErrTranscriptionFailed)
	}

	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = speech.DefaultMIMEType
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: audio, MIMEType: mimeType}},
			{Text: transcribeInstruction},
		},
	}}

	t.logger.Debug("gemini transcription request",
		zap.String("model", t.model),
		zap.String("mime_type", mimeType),
		zap.Int("audio_bytes", len(audio)),
	)

	resp, err := t.models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", faults.ErrTranscriptionFailed, err)
	}

	text := responseText(resp)

	t.logger.Debug("gemini transcription response",
		zap.String("model", t.model),
		zap.String("transcript_preview", utils.TruncateForLog(text, t.maxLogLen)),
	)

	return text, nil
}
