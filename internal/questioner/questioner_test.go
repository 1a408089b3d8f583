package questioner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
)

type stubCompleter struct {
	reply       string
	err         error
	prompt      ai.Prompt
	constraints ai.Constraints
}

func (s *stubCompleter) Complete(_ context.Context, prompt ai.Prompt, constraints ai.Constraints) (string, error) {
	s.prompt = prompt
	s.constraints = constraints
	return s.reply, s.err
}

func request() interview.QuestionRequest {
	job := profile.NewJob("jd", []string{"Python", "Docker"}, profile.LevelMid)
	job.RoleTitle = "Backend Engineer"
	return interview.QuestionRequest{
		Candidate:  profile.NewCandidate("Built an ETL pipeline in Python", []string{"Python"}, profile.LevelJunior),
		Job:        job,
		Round:      planner.RoundSpec{Topic: "Docker", Kind: planner.KindSkill, TargetQuestions: 2, Skill: "Docker"},
		RoundIndex: 1,
		Prior: []interview.QAPair{
			{Question: "What is a container?", Answer: "An isolated process"},
		},
		Avoid: []string{"Tell me about yourself.", "What is a container?"},
	}
}

func TestGenerateParsesJSON(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"question\": \"How would you\\n shrink a Docker image?\", \"kind\": \"Skill\"}\n```"}

	q, err := New(stub, nil).Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "How would you shrink a Docker image?", q.Text)
	assert.Equal(t, planner.KindSkill, q.Kind)
	assert.True(t, stub.constraints.JSON)
}

func TestGeneratePromptCarriesContext(t *testing.T) {
	stub := &stubCompleter{reply: `{"question": "Next?", "kind": "skill"}`}

	_, err := New(stub, nil).Generate(context.Background(), request())
	require.NoError(t, err)

	assert.Contains(t, stub.prompt.System, "role of Backend Engineer")
	assert.Contains(t, stub.prompt.System, "Current round: Docker (skill round)")
	assert.Contains(t, stub.prompt.System, "junior level")
	assert.NotContains(t, stub.prompt.System, "{{")

	assert.Contains(t, stub.prompt.User, "FOCUS SKILL: Docker")
	assert.Contains(t, stub.prompt.User, "A1: An isolated process")
	assert.Contains(t, stub.prompt.User, "- Tell me about yourself.")
	assert.NotContains(t, stub.prompt.User, "RESUME:")
}

func TestGenerateResumeRoundIncludesResume(t *testing.T) {
	stub := &stubCompleter{reply: `{"question": "Walk me through your last role.", "kind": "resume"}`}
	req := request()
	req.Round = planner.RoundSpec{Topic: "Resume walkthrough", Kind: planner.KindResume, TargetQuestions: 2}

	q, err := New(stub, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, planner.KindResume, q.Kind)
	assert.Contains(t, stub.prompt.User, "Built an ETL pipeline in Python")
}

func TestGenerateUnknownKindFallsBackToRound(t *testing.T) {
	stub := &stubCompleter{reply: `{"question": "Why Docker?", "kind": "behavioural"}`}

	q, err := New(stub, nil).Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, planner.KindSkill, q.Kind)
}

func TestGeneratePlainTextReply(t *testing.T) {
	stub := &stubCompleter{reply: "What does a multi-stage build give you?"}

	q, err := New(stub, nil).Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "What does a multi-stage build give you?", q.Text)
	assert.Equal(t, planner.KindSkill, q.Kind)
}

func TestGenerateEmptyQuestionIsExhausted(t *testing.T) {
	for _, reply := range []string{`{"question": "  ", "kind": "skill"}`, "", `{"question": `} {
		_, err := New(&stubCompleter{reply: reply}, nil).Generate(context.Background(), request())
		assert.ErrorIs(t, err, faults.ErrGenerationExhausted, reply)
	}
}

func TestGeneratePassesModelErrorsThrough(t *testing.T) {
	_, err := New(&stubCompleter{err: faults.ErrCollaboratorTimeout}, nil).Generate(context.Background(), request())
	assert.ErrorIs(t, err, faults.ErrCollaboratorTimeout)
	assert.NotErrorIs(t, err, faults.ErrGenerationExhausted)
}
