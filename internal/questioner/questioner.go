// Package questioner asks the language model for the next interview question.
package questioner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/utils"
)

//go:embed question_prompt.md
var questionPrompt string

var questionConstraints = ai.Constraints{Temperature: 0.7, MaxOutputTokens: 256, JSON: true}

type reply struct {
	Question string `json:"question"`
	Kind     string `json:"kind"`
}

type Generator struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{completer: completer, logger: logger, maxLogLen: 200}
}

// Generate asks for exactly one question. A reply without a usable question
// fails with faults.ErrGenerationExhausted so the session can skip the round.
func (g *Generator) Generate(ctx context.Context, req interview.QuestionRequest) (interview.Question, error) {
	raw, err := g.completer.Complete(ctx, ai.Prompt{
		System: systemPrompt(req),
		User:   userPrompt(req),
	}, questionConstraints)
	if err != nil {
		return interview.Question{}, err
	}

	var parsed reply
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		// Some models ignore the JSON instruction and answer with the bare question.
		text := utils.SingleLine(raw)
		if text == "" || strings.ContainsAny(text, "{}") {
			g.logger.Warn("question reply unusable",
				zap.String("response", utils.TruncateForLog(raw, g.maxLogLen)),
				zap.Error(err),
			)
			return interview.Question{}, errors.Join(faults.ErrGenerationExhausted, err)
		}
		parsed.Question = text
	}

	text := utils.SingleLine(parsed.Question)
	if text == "" {
		return interview.Question{}, fmt.Errorf("%w: model returned an empty question", faults.ErrGenerationExhausted)
	}

	q := interview.Question{
		Text: text,
		Kind: planner.ParseKind(strings.ToLower(strings.TrimSpace(parsed.Kind)), req.Round.Kind),
	}

	g.logger.Debug("question generated",
		zap.Int("round", req.RoundIndex),
		zap.String("kind", string(q.Kind)),
		zap.String("question", utils.TruncateForLog(q.Text, g.maxLogLen)),
	)

	return q, nil
}

func systemPrompt(req interview.QuestionRequest) string {
	role := req.Job.RoleTitle
	if role == "" {
		role = "the advertised position"
	}
	return ai.Render(questionPrompt, map[string]string{
		"ROLE":      role,
		"LEVEL":     string(req.Candidate.Level),
		"SENIORITY": string(req.Job.Seniority),
		"TOPIC":     req.Round.Topic,
		"KIND":      string(req.Round.Kind),
	})
}

func userPrompt(req interview.QuestionRequest) string {
	var b strings.Builder

	if req.Candidate.Headline != "" {
		fmt.Fprintf(&b, "CANDIDATE: %s\n", req.Candidate.Headline)
	}
	fmt.Fprintf(&b, "CANDIDATE SKILLS: %s\n", strings.Join(req.Candidate.Skills, ", "))
	if len(req.Candidate.Projects) > 0 {
		fmt.Fprintf(&b, "CANDIDATE PROJECTS:\n- %s\n", strings.Join(req.Candidate.Projects, "\n- "))
	}
	fmt.Fprintf(&b, "JOB REQUIRED SKILLS: %s\n", strings.Join(req.Job.RequiredSkills, ", "))
	if req.Round.Skill != "" {
		fmt.Fprintf(&b, "FOCUS SKILL: %s\n", req.Round.Skill)
	}

	if req.Round.Kind == planner.KindResume || req.Round.Kind == planner.KindProject {
		fmt.Fprintf(&b, "\nRESUME:\n\"\"\"%s\"\"\"\n", req.Candidate.ResumeText)
	}

	if len(req.Prior) > 0 {
		b.WriteString("\nTHIS ROUND SO FAR:\n")
		for i, p := range req.Prior {
			fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, p.Question, i+1, p.Answer)
		}
	}

	if len(req.Avoid) > 0 {
		b.WriteString("\nALREADY ASKED, DO NOT REPEAT:\n")
		for _, q := range req.Avoid {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	b.WriteString("\nAsk the next question.")
	return b.String()
}
