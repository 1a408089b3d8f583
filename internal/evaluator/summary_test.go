package evaluator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/faults"
)

func TestRecommendThresholds(t *testing.T) {
	r := DefaultRubric()
	assert.Equal(t, Hire, r.Recommend(80))
	assert.Equal(t, Hire, r.Recommend(75))
	assert.Equal(t, Hold, r.Recommend(74.99))
	assert.Equal(t, Hold, r.Recommend(60))
	assert.Equal(t, Hold, r.Recommend(50))
	assert.Equal(t, Reject, r.Recommend(49.9))
	assert.Equal(t, Reject, r.Recommend(30))
}

func TestRubricValidate(t *testing.T) {
	require.NoError(t, DefaultRubric().Validate())
	assert.ErrorIs(t, Rubric{HireThreshold: 40, HoldThreshold: 50}.Validate(), faults.ErrInvalidInput)
	assert.ErrorIs(t, Rubric{HireThreshold: 75, HoldThreshold: 50, RoundPassThreshold: 120}.Validate(), faults.ErrInvalidInput)
}

func TestPassesRound(t *testing.T) {
	assert.True(t, DefaultRubric().PassesRound(0))

	r := Rubric{HireThreshold: 75, HoldThreshold: 50, RoundPassThreshold: 40}
	assert.True(t, r.PassesRound(40))
	assert.False(t, r.PassesRound(39.9))
}

func uniform(v int) Scores { return Scores{Clarity: v, Correctness: v, Depth: v} }

func TestSummarizeWeightsByQuestionShare(t *testing.T) {
	rounds := []Round{
		{Index: 0, Topic: "Resume walkthrough", Share: 0.5},
		{Index: 1, Topic: "Docker", Share: 0.25},
		{Index: 2, Topic: "SQL", Share: 0.25},
	}
	answers := []Answer{
		{Round: 0, Question: 0, Scores: uniform(90)},
		{Round: 0, Question: 1, Scores: uniform(70)},
		{Round: 1, Question: 0, Scores: Scores{Clarity: 30, Correctness: 40, Depth: 50}},
		{Round: 2, Question: 0, Scores: uniform(80)},
	}

	s := Summarize(DefaultRubric(), rounds, answers, false)

	// 0.5*80 + 0.25*40 + 0.25*80
	assert.Equal(t, 70.0, s.Overall)
	assert.Equal(t, Hold, s.Recommendation)
	assert.Equal(t, 4, s.Answered)
	assert.Equal(t, []float64{80, 40, 80}, []float64{s.Rounds[0].Score, s.Rounds[1].Score, s.Rounds[2].Score})
	assert.Contains(t, s.Weaknesses, "Docker (40)")
	assert.Contains(t, s.Strengths, "Resume walkthrough (80)")
	assert.Contains(t, s.Justification, "Hold band (50-74)")
	assert.False(t, s.Partial)
}

func TestSummarizeOrderIndependent(t *testing.T) {
	rounds := []Round{{Index: 0, Topic: "a", Share: 0.3}, {Index: 1, Topic: "b", Share: 0.7}}
	answers := []Answer{
		{Round: 0, Question: 0, Scores: Scores{Clarity: 13, Correctness: 77, Depth: 41}, Strengths: []string{"x"}},
		{Round: 0, Question: 1, Scores: Scores{Clarity: 99, Correctness: 3, Depth: 58}, Improvements: []string{"y"}},
		{Round: 1, Question: 0, Scores: Scores{Clarity: 61, Correctness: 62, Depth: 67}, Strengths: []string{"z"}},
		{Round: 1, Question: 1, Failed: true},
		{Round: 1, Question: 2, Scores: Scores{Clarity: 88, Correctness: 71, Depth: 19}},
	}

	want := Summarize(DefaultRubric(), rounds, answers, false)

	rng := rand.New(rand.NewSource(7))
	for range 20 {
		shuffled := append([]Answer(nil), answers...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		planOrder := []Round{rounds[1], rounds[0]}

		assert.Equal(t, want, Summarize(DefaultRubric(), planOrder, shuffled, false))
	}
}

func TestSummarizeOverallInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 100 {
		rounds := []Round{{Index: 0, Share: 0.4}, {Index: 1, Share: 0.6}}
		var answers []Answer
		for q := range 3 {
			answers = append(answers, Answer{
				Round:    q % 2,
				Question: q,
				Scores:   Scores{Clarity: rng.Intn(101), Correctness: rng.Intn(101), Depth: rng.Intn(101)},
			})
		}
		s := Summarize(DefaultRubric(), rounds, answers, false)
		assert.GreaterOrEqual(t, s.Overall, 0.0)
		assert.LessOrEqual(t, s.Overall, 100.0)
	}
}

func TestSummarizePartialSkipsUnansweredRounds(t *testing.T) {
	rounds := []Round{{Index: 0, Topic: "Resume walkthrough", Share: 0.5}, {Index: 1, Topic: "Go", Share: 0.5}}
	answers := []Answer{{Round: 0, Question: 0, Scores: uniform(30)}}

	s := Summarize(DefaultRubric(), rounds, answers, true)
	assert.True(t, s.Partial)
	assert.Equal(t, 30.0, s.Overall)
	assert.Equal(t, Reject, s.Recommendation)
	assert.Zero(t, s.Rounds[1].Answered)
	assert.Contains(t, s.Justification, "aborted")
}

func TestSummarizeNothingAnswered(t *testing.T) {
	s := Summarize(DefaultRubric(), []Round{{Index: 0, Share: 1}}, nil, true)
	assert.Zero(t, s.Overall)
	assert.Equal(t, Reject, s.Recommendation)
	assert.Equal(t, []string{"No questions were answered"}, s.Weaknesses)
}

func TestFailedAnswersCountAsZero(t *testing.T) {
	rounds := []Round{{Index: 0, Topic: "Go", Share: 1}}
	answers := []Answer{
		{Round: 0, Question: 0, Scores: uniform(90)},
		{Round: 0, Question: 1, Failed: true},
	}
	s := Summarize(DefaultRubric(), rounds, answers, false)
	assert.Equal(t, 45.0, s.Overall)
	assert.Equal(t, 1, s.Failed)
	assert.Contains(t, s.Weaknesses, "1 answer(s) could not be evaluated")
}

func TestRecommendationUsesUnroundedOverall(t *testing.T) {
	rounds := []Round{
		{Index: 0, Topic: "Go", Share: 0.996},
		{Index: 1, Topic: "SQL", Share: 0.004},
	}
	answers := []Answer{
		{Round: 0, Question: 0, Scores: uniform(75)},
		{Round: 1, Question: 0, Scores: uniform(74)},
	}

	s := Summarize(DefaultRubric(), rounds, answers, false)

	// 74.996 displays as 75 but is still below the hire line.
	assert.Equal(t, 75.0, s.Overall)
	assert.Equal(t, Hold, s.Recommendation)
}

func TestSummaryCarriesRubricAndClonesDeep(t *testing.T) {
	rubric := Rubric{HireThreshold: 90, HoldThreshold: 70}
	s := Summarize(rubric, []Round{{Index: 0, Topic: "Go", Share: 1}}, []Answer{
		{Round: 0, Question: 0, Scores: uniform(95), Strengths: []string{"Knows the scheduler"}, Improvements: []string{"Mention generics"}},
	}, false)
	assert.Equal(t, rubric, s.Rubric)

	cp := s.Clone()
	cp.Strengths[0] = "changed"
	cp.Improvements[0] = "changed"
	cp.Rounds[0].Score = -1
	cp.Weaknesses = append(cp.Weaknesses, "changed")

	assert.NotEqual(t, "changed", s.Strengths[0])
	assert.Equal(t, []string{"Mention generics"}, s.Improvements)
	assert.Equal(t, 95.0, s.Rounds[0].Score)
	assert.NotContains(t, s.Weaknesses, "changed")
	assert.Nil(t, (*Summary)(nil).Clone())
}
