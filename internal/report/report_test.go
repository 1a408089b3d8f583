package report

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
)

func finishedState(status interview.Status) interview.State {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := profile.NewJob("jd", []string{"Python", "Docker"}, profile.LevelMid)
	job.RoleTitle = "Data Engineer"

	plan := &planner.Plan{
		Level: profile.LevelMid,
		Rounds: []planner.RoundSpec{
			{Topic: "Resume walkthrough", Kind: planner.KindResume, TargetQuestions: 1},
			{Topic: "Docker", Kind: planner.KindSkill, TargetQuestions: 2, Skill: "Docker"},
			{Topic: "Project deep dive", Kind: planner.KindProject, TargetQuestions: 1},
		},
	}
	plan.Budget = plan.TotalQuestions()

	return interview.State{
		ID:        "abc-123",
		Candidate: profile.NewCandidate("resume", []string{"Python"}, profile.LevelMid),
		Job:       job,
		Plan:      plan,
		Rounds: []interview.Round{
			{Index: 0, Topic: "Resume walkthrough", Kind: planner.KindResume, Target: 1, Complete: true, Pairs: []interview.QAPair{{
				Question: "Walk me through your last role.",
				Answer:   "Um, I built uh pipelines, you know",
				Scores:   evaluator.Scores{Clarity: 85, Correctness: 80, Depth: 90},
				Note:     "Owns delivery end to end",
				Fillers:  3, Strengths: []string{"Concrete ownership examples"},
				AskedAt: at, ScoredAt: at,
			}}},
			{Index: 1, Topic: "Docker", Kind: planner.KindSkill, Target: 2, Complete: true, Skipped: true, Pairs: []interview.QAPair{{
				Question:     "How do image layers work?",
				Answer:       "Not sure",
				Scores:       evaluator.Scores{Clarity: 40, Correctness: 20, Depth: 10},
				Improvements: []string{"Read about layer caching"},
				AskedAt:      at, ScoredAt: at,
			}}},
			{Index: 2, Topic: "Project deep dive", Kind: planner.KindProject, Target: 1, Pairs: []interview.QAPair{}},
		},
		Status:      status,
		AbortReason: map[bool]string{true: "candidate left"}[status == interview.StatusAborted],
		Audit:       make([]interview.AuditEntry, 9),
	}
}

func render(t *testing.T, status interview.Status) *Report {
	t.Helper()
	state := finishedState(status)
	summary, err := interview.Summarize(state, evaluator.DefaultRubric())
	require.NoError(t, err)

	r, err := Render(state, summary)
	require.NoError(t, err)
	return r
}

func TestCandidateFeedbackHasNoScoresOrVerdict(t *testing.T) {
	r := render(t, interview.StatusCompleted)

	fb := r.CandidateFeedback
	assert.Contains(t, fb, "Data Engineer")
	assert.Contains(t, fb, "Solid command of Resume walkthrough.")
	assert.Contains(t, fb, "Docker needs more practice.")
	assert.Contains(t, fb, "Concrete ownership examples")
	assert.Contains(t, fb, "Read about layer caching")
	assert.NotRegexp(t, regexp.MustCompile(`\d+\.\d`), fb)
	for _, word := range []string{"Hire", "Hold", "Reject", "recommendation"} {
		assert.NotContains(t, fb, word)
	}
}

func TestHRReportCarriesScoresAndAuditRef(t *testing.T) {
	r := render(t, interview.StatusCompleted)

	hr := r.HRReport
	assert.Contains(t, hr, "Interview report for session abc-123")
	assert.Contains(t, hr, "Recommendation: Reject (overall 43.9/100)")
	assert.Contains(t, hr, "Justification: Overall score")
	assert.Contains(t, hr, "2. Docker [skill] 1/2 answered, weight 0.50, skipped, score 23.3")
	assert.Contains(t, hr, "3. Project deep dive [project] 0/1 answered, weight 0.25, not reached")
	assert.Contains(t, hr, "clarity 85, correctness 80, depth 90; Owns delivery end to end")
	assert.Contains(t, hr, "Speech: 3 filler word(s) over 2 answer(s), 1.5 per answer")
	assert.Contains(t, hr, "Audit log: session/abc-123/audit (9 entries)")
}

func TestAbortedReportIsMarkedPartial(t *testing.T) {
	r := render(t, interview.StatusAborted)

	assert.Contains(t, r.HRReport, "Status: Aborted (partial)")
	assert.Contains(t, r.HRReport, "Abort reason: candidate left")
	assert.Contains(t, r.CandidateFeedback, "ended before every topic was covered")
}

func TestRenderIsPure(t *testing.T) {
	assert.Equal(t, render(t, interview.StatusCompleted), render(t, interview.StatusCompleted))
}

func TestRenderRejectsUnfinishedSession(t *testing.T) {
	state := finishedState(interview.StatusInProgress)
	_, err := Render(state, &evaluator.Summary{})
	assert.ErrorIs(t, err, faults.ErrInvalidState)

	_, err = Render(finishedState(interview.StatusCompleted), nil)
	assert.ErrorIs(t, err, faults.ErrInvalidInput)
}

func TestCandidateFeedbackFollowsSummaryRubric(t *testing.T) {
	state := finishedState(interview.StatusCompleted)
	strict := evaluator.Rubric{HireThreshold: 90, HoldThreshold: 70}
	summary, err := interview.Summarize(state, strict)
	require.NoError(t, err)
	require.Equal(t, evaluator.Reject, summary.Recommendation)

	r, err := Render(state, summary)
	require.NoError(t, err)

	fb := r.CandidateFeedback
	assert.NotContains(t, fb, "Solid command of Resume walkthrough.")
	assert.Contains(t, fb, "Some answers were hard to follow.")
	assert.Contains(t, fb, "Docker needs more practice.")
}

func TestHRReportWithoutRoleTitle(t *testing.T) {
	state := finishedState(interview.StatusCompleted)
	state.Job.RoleTitle = ""
	summary, err := interview.Summarize(state, evaluator.DefaultRubric())
	require.NoError(t, err)

	r, err := Render(state, summary)
	require.NoError(t, err)
	assert.Contains(t, r.HRReport, "Role: not specified")
	assert.NotContains(t, r.HRReport, "Role: advertised")
	assert.Contains(t, r.CandidateFeedback, "for the advertised role")
}
