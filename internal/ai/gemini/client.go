package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/utils"
)

const (
	defaultModel        = "gemini-2.0-flash"
	defaultMaxLogLength = 200
	// Quota windows longer than this are not waited out inside an interview turn.
	maxQuotaDelay = 30 * time.Second
)

var (
	sleep = time.Sleep

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.client.Chats.Create(ctx, model, config, history)
}

// Options configures a Generator.
type Options struct {
	APIKey       string
	Model        string
	MaxRetries   int
	MaxLogLength int
	Logger       *zap.Logger
}

// Generator is the Gemini-backed ai.Completer. Every call opens a fresh chat
// so sessions never leak context into each other.
type Generator struct {
	client     *genai.Client
	chats      chatCreator
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:     client,
		chats:      genaiChats{client: client},
		model:      model,
		maxRetries: opts.MaxRetries,
		maxLogLen:  maxLogLen,
		logger:     logger,
	}, nil
}

// Complete implements ai.Completer.
func (g *Generator) Complete(ctx context.Context, prompt ai.Prompt, constraints ai.Constraints) (string, error) {
	config := &genai.GenerateContentConfig{}
	if constraints.Temperature > 0 {
		config.Temperature = genai.Ptr(constraints.Temperature)
	}
	if constraints.MaxOutputTokens > 0 {
		config.MaxOutputTokens = constraints.MaxOutputTokens
	}
	if constraints.JSON {
		config.ResponseMIMEType = "application/json"
	}

	return g.generate(ctx, prompt.System, prompt.User, config)
}

func (g *Generator) generate(ctx context.Context, system, message string, config *genai.GenerateContentConfig) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: system}},
		}
	}

	g.logger.Debug("gemini generate content request",
		zap.String("model", g.model),
		zap.String("prompt_preview", utils.TruncateForLog(message, g.maxLogLen)),
	)

	policy := ai.RetryPolicy{MaxAttempts: g.maxRetries, BaseDelay: g.baseDelay}
	output, err := ai.Retry(ctx, policy, g.logger, func(ctx context.Context) (string, error) {
		return g.attempt(ctx, message, config)
	})
	if err != nil {
		return "", err
	}

	g.logger.Debug("gemini generate content response",
		zap.String("model", g.model),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) attempt(ctx context.Context, message string, config *genai.GenerateContentConfig) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", classify(fmt.Errorf("create chat: %w", err))
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", classify(fmt.Errorf("generate content: %w", err))
	}

	output := responseText(resp)
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", faults.ErrModelUnavailable)
	}
	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify maps provider errors onto the collaborator taxonomy.
func classify(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", faults.ErrModelUnavailable, err)
		}
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		if delay, ok := quotaDelay(apiErr.Message); ok {
			if delay > maxQuotaDelay {
				return fmt.Errorf("%w: %w (quota resets in %s)", faults.ErrCollaboratorTimeout, faults.ErrRateLimited, delay)
			}
			sleep(delay)
		}
		return fmt.Errorf("%w: %w", faults.ErrRateLimited, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", faults.ErrModelUnavailable, err)
	default:
		return err
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func quotaDelay(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
