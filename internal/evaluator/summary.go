package evaluator

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/faults"
)

type Recommendation string

const (
	Hire   Recommendation = "Hire"
	Hold   Recommendation = "Hold"
	Reject Recommendation = "Reject"
)

const maxHighlights = 5

// Rubric is the scoring policy shared read-only by every session.
type Rubric struct {
	HireThreshold int `mapstructure:"hire-threshold" json:"hire_threshold" validate:"gtfield=HoldThreshold,lte=100"`
	HoldThreshold int `mapstructure:"hold-threshold" json:"hold_threshold" validate:"gte=0,lte=100"`
	// RoundPassThreshold ends the interview early when a finished round scores
	// below it. Zero disables the gate.
	RoundPassThreshold int `mapstructure:"round-pass-threshold" json:"round_pass_threshold" validate:"gte=0,lte=100"`
}

func DefaultRubric() Rubric {
	return Rubric{HireThreshold: 75, HoldThreshold: 50}
}

func (r Rubric) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("%w: rubric: %w", faults.ErrInvalidInput, err)
	}
	return nil
}

// Recommend maps an overall score onto a recommendation band.
func (r Rubric) Recommend(score float64) Recommendation {
	switch {
	case score >= float64(r.HireThreshold):
		return Hire
	case score >= float64(r.HoldThreshold):
		return Hold
	default:
		return Reject
	}
}

// PassesRound reports whether a finished round allows the interview to go on.
func (r Rubric) PassesRound(score float64) bool {
	return r.RoundPassThreshold <= 0 || score >= float64(r.RoundPassThreshold)
}

func (r Rubric) band(rec Recommendation) string {
	switch rec {
	case Hire:
		return fmt.Sprintf("%d and above", r.HireThreshold)
	case Hold:
		return fmt.Sprintf("%d-%d", r.HoldThreshold, r.HireThreshold-1)
	default:
		return fmt.Sprintf("below %d", r.HoldThreshold)
	}
}

// Answer is one scored question as the aggregation sees it.
type Answer struct {
	Round        int
	Question     int
	Scores       Scores
	Failed       bool
	Strengths    []string
	Improvements []string
}

// Round describes a planned round: its topic and its share of the question budget.
type Round struct {
	Index int
	Topic string
	Share float64
}

type Dimensions struct {
	Clarity     float64 `json:"clarity"`
	Correctness float64 `json:"correctness"`
	Depth       float64 `json:"depth"`
}

type RoundScore struct {
	Index    int     `json:"index"`
	Topic    string  `json:"topic"`
	Share    float64 `json:"share"`
	Score    float64 `json:"score"`
	Answered int     `json:"answered"`
}

// Summary is computed once when a session ends and never changes afterwards.
type Summary struct {
	Dimensions     Dimensions     `json:"dimensions"`
	Rounds         []RoundScore   `json:"rounds"`
	Overall        float64        `json:"overall"`
	Answered       int            `json:"answered"`
	Failed         int            `json:"failed"`
	Strengths      []string       `json:"strengths"`
	Weaknesses     []string       `json:"weaknesses"`
	Improvements   []string       `json:"improvements"`
	Recommendation Recommendation `json:"recommendation"`
	Justification  string         `json:"justification"`
	Partial        bool           `json:"partial"`
	// Rubric is the one the summary was scored with, so reports built later
	// from a stored record draw the same lines.
	Rubric Rubric `json:"rubric"`
}

// Clone returns a copy that shares no slices with s.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Rounds = slices.Clone(s.Rounds)
	cp.Strengths = slices.Clone(s.Strengths)
	cp.Weaknesses = slices.Clone(s.Weaknesses)
	cp.Improvements = slices.Clone(s.Improvements)
	return &cp
}

// ScoreRound is the unweighted mean of the answers' mean dimension scores.
func ScoreRound(answers []Answer) float64 {
	if len(answers) == 0 {
		return 0
	}
	sorted := sortAnswers(answers)
	total := 0.0
	for _, a := range sorted {
		total += a.Scores.Mean()
	}
	return total / float64(len(sorted))
}

// Summarize aggregates scored answers. The result does not depend on the order
// answers are passed in. Rounds without answers do not count towards the
// overall score.
func Summarize(rubric Rubric, rounds []Round, answers []Answer, partial bool) *Summary {
	byRound := make(map[int][]Answer, len(rounds))
	for _, a := range answers {
		byRound[a.Round] = append(byRound[a.Round], a)
	}

	plan := slices.Clone(rounds)
	slices.SortFunc(plan, func(a, b Round) int { return cmp.Compare(a.Index, b.Index) })

	summary := &Summary{
		Rounds:       []RoundScore{},
		Strengths:    []string{},
		Weaknesses:   []string{},
		Improvements: []string{},
		Partial:      partial,
		Rubric:       rubric,
	}

	var (
		weighted, shares float64
		dims             Dimensions
		strengths        []string
		improvements     []string
	)

	for _, round := range plan {
		scored := sortAnswers(byRound[round.Index])
		rs := RoundScore{Index: round.Index, Topic: round.Topic, Share: round.Share, Answered: len(scored)}
		if len(scored) > 0 {
			rs.Score = ScoreRound(scored)
			weighted += rs.Score * round.Share
			shares += round.Share
		}
		summary.Rounds = append(summary.Rounds, rs)

		for _, a := range scored {
			summary.Answered++
			if a.Failed {
				summary.Failed++
			}
			dims.Clarity += float64(a.Scores.Clarity)
			dims.Correctness += float64(a.Scores.Correctness)
			dims.Depth += float64(a.Scores.Depth)
			strengths = append(strengths, a.Strengths...)
			improvements = append(improvements, a.Improvements...)
		}
	}

	if summary.Answered > 0 {
		n := float64(summary.Answered)
		summary.Dimensions = Dimensions{
			Clarity:     round2(dims.Clarity / n),
			Correctness: round2(dims.Correctness / n),
			Depth:       round2(dims.Depth / n),
		}
	}
	var overall float64
	if shares > 0 {
		overall = min(max(weighted/shares, 0), 100)
	}
	summary.Overall = round2(overall)
	for i := range summary.Rounds {
		summary.Rounds[i].Score = round2(summary.Rounds[i].Score)
	}

	// Bands are decided on the exact score; rounding is for display only.
	summary.Recommendation = rubric.Recommend(overall)
	summary.Strengths, summary.Weaknesses = highlights(rubric, summary, strengths)
	summary.Improvements = limit(ai.CleanList(improvements))
	summary.Justification = justify(rubric, summary)

	return summary
}

func sortAnswers(answers []Answer) []Answer {
	sorted := slices.Clone(answers)
	slices.SortStableFunc(sorted, func(a, b Answer) int {
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		return cmp.Compare(a.Question, b.Question)
	})
	return sorted
}

var dimensionNames = []string{"clarity", "correctness", "depth"}

func (d Dimensions) values() []float64 {
	return []float64{d.Clarity, d.Correctness, d.Depth}
}

func highlights(rubric Rubric, s *Summary, answerStrengths []string) ([]string, []string) {
	var strengths, weaknesses []string
	if s.Answered == 0 {
		return []string{}, []string{"No questions were answered"}
	}

	for i, v := range s.Dimensions.values() {
		switch {
		case v >= float64(rubric.HireThreshold):
			strengths = append(strengths, fmt.Sprintf("Strong %s (%.0f)", dimensionNames[i], v))
		case v < float64(rubric.HoldThreshold):
			weaknesses = append(weaknesses, fmt.Sprintf("Weak %s (%.0f)", dimensionNames[i], v))
		}
	}
	for _, r := range s.Rounds {
		if r.Answered == 0 {
			continue
		}
		switch {
		case r.Score >= float64(rubric.HireThreshold):
			strengths = append(strengths, fmt.Sprintf("%s (%.0f)", r.Topic, r.Score))
		case r.Score < float64(rubric.HoldThreshold):
			weaknesses = append(weaknesses, fmt.Sprintf("%s (%.0f)", r.Topic, r.Score))
		}
	}
	if s.Failed > 0 {
		weaknesses = append(weaknesses, fmt.Sprintf("%d answer(s) could not be evaluated", s.Failed))
	}
	strengths = append(strengths, answerStrengths...)

	return limit(ai.CleanList(strengths)), limit(ai.CleanList(weaknesses))
}

func justify(rubric Rubric, s *Summary) string {
	var b strings.Builder
	answeredRounds := 0
	for _, r := range s.Rounds {
		if r.Answered > 0 {
			answeredRounds++
		}
	}

	fmt.Fprintf(&b, "Overall score %.1f across %d answered question(s) in %d round(s) falls in the %s band (%s).",
		s.Overall, s.Answered, answeredRounds, s.Recommendation, rubric.band(s.Recommendation))

	if best, worst, ok := extremes(s.Rounds); ok && best.Index != worst.Index {
		fmt.Fprintf(&b, " Strongest round: %s (%.0f). Weakest round: %s (%.0f).", best.Topic, best.Score, worst.Topic, worst.Score)
	}
	if s.Partial {
		b.WriteString(" The interview was aborted, so only answered questions are counted.")
	}
	return b.String()
}

func extremes(rounds []RoundScore) (RoundScore, RoundScore, bool) {
	var best, worst RoundScore
	found := false
	for _, r := range rounds {
		if r.Answered == 0 {
			continue
		}
		if !found {
			best, worst, found = r, r, true
			continue
		}
		if r.Score > best.Score {
			best = r
		}
		if r.Score < worst.Score {
			worst = r
		}
	}
	return best, worst, found
}

func limit(items []string) []string {
	if len(items) > maxHighlights {
		return items[:maxHighlights]
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
