package profile

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
)

type Level string

const (
	LevelJunior Level = "junior"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
)

var (
	projectIndicators = regexp.MustCompile(`(?i)\b(projects?|built|developed|implemented|designed|launched|shipped|github\.com)\b`)
	numberPattern     = regexp.MustCompile(`\d+`)
)

// ParseLevel accepts the level names used by candidates and job postings.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intern", "fresher", "entry", "junior":
		return LevelJunior, nil
	case "mid", "middle", "intermediate":
		return LevelMid, nil
	case "senior", "lead", "staff", "principal":
		return LevelSenior, nil
	default:
		return "", fmt.Errorf("%w: unknown experience level %q", faults.ErrInvalidInput, s)
	}
}

// LevelFromYears maps answers like "0", "1-2" or "5+" onto a level.
func LevelFromYears(years string) Level {
	digits := numberPattern.FindAllString(years, -1)
	if len(digits) == 0 {
		return LevelJunior
	}

	// The upper bound of a range decides ("3-5" is mid, "5+" is senior).
	n, _ := strconv.Atoi(digits[len(digits)-1])
	switch {
	case n >= 5:
		return LevelSenior
	case n >= 3:
		return LevelMid
	default:
		return LevelJunior
	}
}

func (l Level) Rank() int {
	switch l {
	case LevelJunior:
		return 1
	case LevelMid:
		return 2
	case LevelSenior:
		return 3
	default:
		return 0
	}
}

// Candidate is the resume side of an interview. It is built once and then only
// read; callers that need to keep it across goroutines take a Clone.
type Candidate struct {
	ResumeText string   `json:"resume_text"`
	Headline   string   `json:"headline,omitempty"`
	Skills     []string `json:"skills"`
	Projects   []string `json:"projects"`
	Level      Level    `json:"level"`
}

// Job is the job-description side of an interview.
type Job struct {
	Description    string   `json:"description"`
	RoleTitle      string   `json:"role_title,omitempty"`
	RequiredSkills []string `json:"required_skills"`
	NiceToHave     []string `json:"nice_to_have"`
	Seniority      Level    `json:"seniority"`
}

func NewCandidate(resumeText string, skills []string, level Level) Candidate {
	return Candidate{
		ResumeText: strings.TrimSpace(resumeText),
		Skills:     ai.CleanList(skills),
		Level:      level,
	}
}

func NewJob(description string, required []string, seniority Level) Job {
	return Job{
		Description:    strings.TrimSpace(description),
		RequiredSkills: ai.CleanList(required),
		Seniority:      seniority,
	}
}

// HasProjects reports whether the resume gives a project deep-dive something to dig into.
func (c Candidate) HasProjects() bool {
	return len(c.Projects) > 0 || projectIndicators.MatchString(c.ResumeText)
}

func (c Candidate) Clone() Candidate {
	c.Skills = slices.Clone(c.Skills)
	c.Projects = slices.Clone(c.Projects)
	return c
}

func (j Job) Clone() Job {
	j.RequiredSkills = slices.Clone(j.RequiredSkills)
	j.NiceToHave = slices.Clone(j.NiceToHave)
	return j
}
