package profile

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
)

//go:embed resume_prompt.md
var resumePrompt string

//go:embed job_prompt.md
var jobPrompt string

var analysisConstraints = ai.Constraints{Temperature: 0.2, JSON: true}

type resumeAnalysis struct {
	Headline          string   `json:"headline"`
	YearsOfExperience string   `json:"years_of_experience"`
	CoreSkills        []string `json:"core_technical_skills"`
	SecondarySkills   []string `json:"secondary_skills"`
	KeyProjects       []string `json:"key_projects"`
}

type jobAnalysis struct {
	RoleTitle       string   `json:"role_title"`
	CoreSkills      []string `json:"core_technical_skills"`
	SecondarySkills []string `json:"secondary_technical_skills"`
	ExperienceLevel string   `json:"experience_level"`
}

// Analyzer builds profiles from raw resume and job description text with the
// help of a language model.
type Analyzer struct {
	completer ai.Completer
	logger    *zap.Logger
}

func NewAnalyzer(completer ai.Completer, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{completer: completer, logger: logger}
}

// Analyze runs resume and job analysis concurrently. A non-empty level
// overrides whatever the resume suggests.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobText string, level Level) (Candidate, Job, error) {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jobText) == "" {
		return Candidate{}, Job{}, fmt.Errorf("%w: resume and job description are both required", faults.ErrInvalidInput)
	}

	var (
		candidate Candidate
		job       Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidate, err = a.AnalyzeResume(gctx, resumeText, level)
		return err
	})
	g.Go(func() error {
		var err error
		job, err = a.AnalyzeJob(gctx, jobText)
		return err
	})

	if err := g.Wait(); err != nil {
		return Candidate{}, Job{}, err
	}

	return candidate, job, nil
}

func (a *Analyzer) AnalyzeResume(ctx context.Context, resumeText string, level Level) (Candidate, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return Candidate{}, fmt.Errorf("%w: resume text is empty", faults.ErrInvalidInput)
	}

	raw, err := a.completer.Complete(ctx, ai.Prompt{
		System: resumePrompt,
		User:   fmt.Sprintf("RESUME TEXT:\n\"\"\"%s\"\"\"", resumeText),
	}, analysisConstraints)
	if err != nil {
		return Candidate{}, fmt.Errorf("analyze resume: %w", err)
	}

	var parsed resumeAnalysis
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		return Candidate{}, fmt.Errorf("analyze resume: %w", err)
	}

	if level == "" {
		level = LevelFromYears(parsed.YearsOfExperience)
	}

	candidate := NewCandidate(resumeText, append(parsed.CoreSkills, parsed.SecondarySkills...), level)
	candidate.Headline = strings.TrimSpace(parsed.Headline)
	candidate.Projects = ai.CleanList(parsed.KeyProjects)

	a.logger.Info("resume analyzed",
		zap.Int("skills", len(candidate.Skills)),
		zap.Int("projects", len(candidate.Projects)),
		zap.String("level", string(candidate.Level)),
	)

	return candidate, nil
}

func (a *Analyzer) AnalyzeJob(ctx context.Context, jobText string) (Job, error) {
	jobText = strings.TrimSpace(jobText)
	if jobText == "" {
		return Job{}, fmt.Errorf("%w: job description is empty", faults.ErrInvalidInput)
	}

	raw, err := a.completer.Complete(ctx, ai.Prompt{
		System: jobPrompt,
		User:   fmt.Sprintf("Job Description:\n\"\"\"%s\"\"\"", jobText),
	}, analysisConstraints)
	if err != nil {
		return Job{}, fmt.Errorf("analyze job description: %w", err)
	}

	var parsed jobAnalysis
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		return Job{}, fmt.Errorf("analyze job description: %w", err)
	}

	seniority, err := ParseLevel(parsed.ExperienceLevel)
	if err != nil {
		a.logger.Debug("job seniority not recognised, assuming mid",
			zap.String("experience_level", parsed.ExperienceLevel),
		)
		seniority = LevelMid
	}

	job := NewJob(jobText, parsed.CoreSkills, seniority)
	job.RoleTitle = strings.TrimSpace(parsed.RoleTitle)
	job.NiceToHave = ai.CleanList(parsed.SecondarySkills)

	a.logger.Info("job description analyzed",
		zap.String("role_title", job.RoleTitle),
		zap.Int("required_skills", len(job.RequiredSkills)),
		zap.String("seniority", string(job.Seniority)),
	)

	return job, nil
}
