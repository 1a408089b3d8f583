// Package evaluator scores interview answers and aggregates them into the
// final hiring recommendation.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/profile"
	"github.com/spigell/interview-agent/internal/utils"
)

//go:embed evaluate_prompt.md
var evaluatePrompt string

var evaluateConstraints = ai.Constraints{Temperature: 0.1, MaxOutputTokens: 1024, JSON: true}

type Scores struct {
	Clarity     int `json:"clarity"`
	Correctness int `json:"correctness"`
	Depth       int `json:"depth"`
}

func (s Scores) Mean() float64 {
	return float64(s.Clarity+s.Correctness+s.Depth) / 3
}

// Clamp forces every dimension into [0,100].
func (s Scores) Clamp() Scores {
	return Scores{
		Clarity:     clampScore(s.Clarity),
		Correctness: clampScore(s.Correctness),
		Depth:       clampScore(s.Depth),
	}
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

// Assessment is the verdict on a single answer.
type Assessment struct {
	Scores       Scores   `json:"scores"`
	Note         string   `json:"note"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

type Input struct {
	Question  string
	Answer    string
	Topic     string
	Kind      string
	Candidate profile.Candidate
	Job       profile.Job
}

type modelAssessment struct {
	Clarity      int      `json:"clarity"`
	Correctness  int      `json:"correctness"`
	Depth        int      `json:"depth"`
	Note         string   `json:"note"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

type Evaluator struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{completer: completer, logger: logger, maxLogLen: 200}
}

// Evaluate scores one answer. An empty transcript or an unusable model reply
// fails with faults.ErrEvaluationFailed; collaborator outages are returned as is.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (*Assessment, error) {
	if strings.TrimSpace(in.Answer) == "" {
		return nil, fmt.Errorf("%w: answer transcript is empty", faults.ErrEvaluationFailed)
	}

	raw, err := e.completer.Complete(ctx, ai.Prompt{System: evaluatePrompt, User: userPrompt(in)}, evaluateConstraints)
	if err != nil {
		if errors.Is(err, faults.ErrCollaboratorTimeout) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", faults.ErrEvaluationFailed, err)
	}

	var parsed modelAssessment
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		e.logger.Warn("evaluation reply unusable",
			zap.String("response", utils.TruncateForLog(raw, e.maxLogLen)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", faults.ErrEvaluationFailed, err)
	}

	assessment := &Assessment{
		Scores: Scores{
			Clarity:     parsed.Clarity,
			Correctness: parsed.Correctness,
			Depth:       parsed.Depth,
		}.Clamp(),
		Note:         utils.SingleLine(parsed.Note),
		Strengths:    ai.CleanList(parsed.Strengths),
		Improvements: ai.CleanList(parsed.Improvements),
	}

	e.logger.Debug("answer evaluated",
		zap.Int("clarity", assessment.Scores.Clarity),
		zap.Int("correctness", assessment.Scores.Correctness),
		zap.Int("depth", assessment.Scores.Depth),
	)

	return assessment, nil
}

func userPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ROLE TITLE: %s\n", fallback(in.Job.RoleTitle, "not specified"))
	fmt.Fprintf(&b, "ROUND TOPIC: %s (%s)\n\n", in.Topic, fallback(in.Kind, "general"))
	fmt.Fprintf(&b, "QUESTION:\n%s\n\n", strings.TrimSpace(in.Question))
	fmt.Fprintf(&b, "ANSWER (TRANSCRIBED):\n%s\n\n", strings.TrimSpace(in.Answer))
	fmt.Fprintf(&b, "JOB REQUIRED SKILLS: %s\n", strings.Join(in.Job.RequiredSkills, ", "))
	fmt.Fprintf(&b, "JOB SENIORITY: %s\n", in.Job.Seniority)
	fmt.Fprintf(&b, "CANDIDATE SKILLS: %s\n", strings.Join(in.Candidate.Skills, ", "))
	fmt.Fprintf(&b, "CANDIDATE LEVEL: %s\n", in.Candidate.Level)
	return b.String()
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
