package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/faults"
)

func TestExtractPlainText(t *testing.T) {
	text, err := NewExtractor().Extract(context.Background(), []byte("  Jane Doe\r\n\r\n  Skills: Go, SQL  \n"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: Go, SQL", text)
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
	assert.True(t, errors.Is(err, faults.ErrUnsupportedFormat), "got %v", err)
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte(" \n "))
	assert.True(t, errors.Is(err, faults.ErrExtractionFailed), "got %v", err)
}

func TestExtractBrokenPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte("%PDF-1.4\nthis is not a real pdf body"))
	assert.True(t, errors.Is(err, faults.ErrExtractionFailed), "got %v", err)
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor().Extract(ctx, []byte("resume"))
	assert.ErrorIs(t, err, context.Canceled)
}
