package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/profile"
)

func TestMatchFindsMissingDocker(t *testing.T) {
	candidate := profile.NewCandidate("Python and SQL developer", []string{"Python", "SQL"}, profile.LevelMid)
	job := profile.NewJob("Backend role", []string{"Python", "SQL", "Docker"}, profile.LevelMid)

	gap, err := Match(candidate, job)
	require.NoError(t, err)

	assert.Equal(t, []string{"Python", "SQL"}, gap.Matched)
	assert.Equal(t, []string{"Docker"}, gap.Missing)
	assert.InDelta(t, 66.67, gap.Relevance, 0.01)
	require.Len(t, gap.Skills, 3)
	assert.Equal(t, SkillGap{Skill: "Docker", Weight: MissingWeight, Order: 2}, gap.Skills[2])
	assert.Equal(t, MatchedWeight, gap.Skills[0].Weight)
}

func TestMatchIgnoresCaseAndWhitespace(t *testing.T) {
	candidate := profile.NewCandidate("resume", []string{"machine   learning", "GO"}, profile.LevelMid)
	job := profile.NewJob("jd", []string{"Machine Learning", "go"}, profile.LevelMid)

	gap, err := Match(candidate, job)
	require.NoError(t, err)
	assert.Empty(t, gap.Missing)
	assert.Equal(t, 100.0, gap.Relevance)
}

func TestMatchEmptyCandidateSkills(t *testing.T) {
	candidate := profile.NewCandidate("no skills listed", nil, profile.LevelMid)
	job := profile.NewJob("jd", []string{"Go", "Kafka"}, profile.LevelMid)

	gap, err := Match(candidate, job)
	require.NoError(t, err)
	assert.Empty(t, gap.Matched)
	assert.NotNil(t, gap.Matched)
	assert.Equal(t, []string{"Go", "Kafka"}, gap.Missing)
	assert.Zero(t, gap.Relevance)
}

func TestMatchLevelPenalty(t *testing.T) {
	candidate := profile.NewCandidate("resume", []string{"Go"}, profile.LevelJunior)
	job := profile.NewJob("jd", []string{"Go", "Kubernetes"}, profile.LevelSenior)

	gap, err := Match(candidate, job)
	require.NoError(t, err)
	assert.Equal(t, MatchedWeight, gap.Skills[0].Weight)
	assert.Equal(t, MissingWeight+LevelPenalty, gap.Skills[1].Weight)
}

func TestMatchNoRequiredSkills(t *testing.T) {
	gap, err := Match(profile.NewCandidate("resume", []string{"Go"}, profile.LevelMid), profile.NewJob("jd", nil, profile.LevelMid))
	require.NoError(t, err)
	assert.True(t, gap.Empty())
	assert.Zero(t, gap.Relevance)
}

func TestMatchIsDeterministic(t *testing.T) {
	candidate := profile.NewCandidate("resume", []string{"SQL", "Go"}, profile.LevelMid)
	job := profile.NewJob("jd", []string{"Go", "Docker", "SQL", "Redis"}, profile.LevelSenior)

	first, err := Match(candidate, job)
	require.NoError(t, err)
	for range 10 {
		again, err := Match(candidate, job)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMatchRejectsEmptySources(t *testing.T) {
	_, err := Match(profile.NewCandidate(" ", nil, profile.LevelMid), profile.NewJob("jd", nil, profile.LevelMid))
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	_, err = Match(profile.NewCandidate("resume", nil, profile.LevelMid), profile.NewJob("", nil, profile.LevelMid))
	assert.ErrorIs(t, err, faults.ErrInvalidInput)
}
