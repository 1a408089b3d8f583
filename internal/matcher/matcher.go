// Package matcher compares a candidate against a job description and produces
// the skill gap profile the interview plan is built from.
package matcher

import (
	"fmt"
	"strings"

	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/profile"
	"github.com/spigell/interview-agent/internal/utils"
)

const (
	MissingWeight = 1.0
	MatchedWeight = 0.5
	// LevelPenalty is added to every missing skill when the candidate is below
	// the seniority the job asks for.
	LevelPenalty = 0.25
)

// SkillGap is one required skill of the job and how the candidate covers it.
type SkillGap struct {
	Skill   string  `json:"skill"`
	Weight  float64 `json:"weight"`
	Matched bool    `json:"matched"`
	// Order is the position of the skill in the job description.
	Order int `json:"order"`
}

type GapProfile struct {
	Matched   []string   `json:"matched"`
	Missing   []string   `json:"missing"`
	Skills    []SkillGap `json:"skills"`
	Relevance float64    `json:"relevance"`
}

// Match is deterministic: skills are compared case-insensitively with
// collapsed whitespace and the result keeps job description order.
func Match(candidate profile.Candidate, job profile.Job) (*GapProfile, error) {
	if strings.TrimSpace(candidate.ResumeText) == "" {
		return nil, fmt.Errorf("%w: resume text is empty", faults.ErrInvalidInput)
	}
	if strings.TrimSpace(job.Description) == "" {
		return nil, fmt.Errorf("%w: job description is empty", faults.ErrInvalidInput)
	}

	known := make(map[string]struct{}, len(candidate.Skills))
	for _, skill := range candidate.Skills {
		if key := utils.NormalizeText(skill); key != "" {
			known[key] = struct{}{}
		}
	}

	penalty := 0.0
	if candidate.Level.Rank() < job.Seniority.Rank() {
		penalty = LevelPenalty
	}

	gap := &GapProfile{
		Matched: []string{},
		Missing: []string{},
		Skills:  []SkillGap{},
	}

	seen := make(map[string]struct{}, len(job.RequiredSkills))
	for _, skill := range job.RequiredSkills {
		key := utils.NormalizeText(skill)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entry := SkillGap{Skill: strings.TrimSpace(skill), Order: len(gap.Skills)}
		if _, ok := known[key]; ok {
			entry.Matched = true
			entry.Weight = MatchedWeight
			gap.Matched = append(gap.Matched, entry.Skill)
		} else {
			entry.Weight = MissingWeight + penalty
			gap.Missing = append(gap.Missing, entry.Skill)
		}
		gap.Skills = append(gap.Skills, entry)
	}

	if len(gap.Skills) > 0 {
		gap.Relevance = float64(len(gap.Matched)) / float64(len(gap.Skills)) * 100
	}

	return gap, nil
}

// Empty reports whether the job gave nothing to compare against.
func (g *GapProfile) Empty() bool {
	return g == nil || len(g.Skills) == 0
}
