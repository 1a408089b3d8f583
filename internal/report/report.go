// Package report renders the candidate feedback and the HR report of a
// finished interview. Rendering is pure: no collaborator is called.
package report

import (
	"fmt"
	"strings"

	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
)

type Report struct {
	SessionID         string `json:"session_id"`
	CandidateFeedback string `json:"candidate_feedback"`
	HRReport          string `json:"hr_report"`
}

// AuditRef is where HR finds the full session log.
func AuditRef(sessionID string) string {
	return "session/" + sessionID + "/audit"
}

func Render(state interview.State, summary *evaluator.Summary) (*Report, error) {
	if !state.Status.Terminal() {
		return nil, fmt.Errorf("%w: report needs a completed or aborted session, got %s", faults.ErrInvalidState, state.Status)
	}
	if summary == nil {
		return nil, fmt.Errorf("%w: summary is missing", faults.ErrInvalidInput)
	}

	return &Report{
		SessionID:         state.ID,
		CandidateFeedback: candidateFeedback(state, summary),
		HRReport:          hrReport(state, summary),
	}, nil
}

var dimensionAdvice = map[string]struct{ strength, weakness, action string }{
	"clarity": {
		strength: "You explain your thinking in a clear, structured way.",
		weakness: "Some answers were hard to follow.",
		action:   "Structure answers as situation, task, action and result, and lead with the conclusion.",
	},
	"correctness": {
		strength: "Your technical statements were accurate.",
		weakness: "Some technical details were inaccurate or incomplete.",
		action:   "Revisit the fundamentals of the technologies listed in the job description and verify them with small experiments.",
	},
	"depth": {
		strength: "You go beyond the surface and discuss decisions and trade-offs.",
		weakness: "Answers tended to stay at a high level.",
		action:   "Prepare two or three concrete stories with numbers, trade-offs and what you would do differently.",
	},
}

var dimensionOrder = []string{"clarity", "correctness", "depth"}

func dimensionScores(d evaluator.Dimensions) map[string]float64 {
	return map[string]float64{
		"clarity":     d.Clarity,
		"correctness": d.Correctness,
		"depth":       d.Depth,
	}
}

func candidateFeedback(state interview.State, summary *evaluator.Summary) string {
	var (
		strengths, weaknesses, actions []string
		scores                         = dimensionScores(summary.Dimensions)
		bands                          = rubric(summary)
		strongScore                    = float64(bands.HireThreshold)
		weakScore                      = float64(bands.HoldThreshold)
	)

	if summary.Answered > 0 {
		for _, dim := range dimensionOrder {
			advice := dimensionAdvice[dim]
			switch v := scores[dim]; {
			case v >= strongScore:
				strengths = append(strengths, advice.strength)
			case v < weakScore:
				weaknesses = append(weaknesses, advice.weakness)
				actions = append(actions, advice.action)
			}
		}
	}

	for _, r := range summary.Rounds {
		if r.Answered == 0 {
			continue
		}
		switch {
		case r.Score >= strongScore:
			strengths = append(strengths, fmt.Sprintf("Solid command of %s.", r.Topic))
		case r.Score < weakScore:
			weaknesses = append(weaknesses, fmt.Sprintf("%s needs more practice.", r.Topic))
			actions = append(actions, fmt.Sprintf("Practise explaining %s with a concrete example from your own work.", r.Topic))
		}
	}

	for _, r := range state.Rounds {
		for _, p := range r.Pairs {
			strengths = append(strengths, p.Strengths...)
		}
	}
	actions = append(actions, summary.Improvements...)

	if fillers, answered := fillerStats(state); answered > 0 && float64(fillers)/float64(answered) >= 3 {
		actions = append(actions, "Pause instead of using filler words such as \"um\" or \"you know\"; record yourself answering to notice them.")
	}

	var b strings.Builder
	role := roleTitle(state, "advertised")
	fmt.Fprintf(&b, "Thank you for interviewing for the %s role.\n", role)
	fmt.Fprintf(&b, "You answered %d question(s) across %d topic(s).\n", summary.Answered, answeredTopics(summary))
	if state.Status == interview.StatusAborted {
		b.WriteString("The interview ended before every topic was covered, so this feedback reflects only the questions you answered.\n")
	}

	section(&b, "What went well", ai.CleanList(strengths), "Keep practising; there was not enough material to single out strengths yet.")
	section(&b, "Where to improve", ai.CleanList(weaknesses), "No major gaps stood out.")
	section(&b, "Suggested next steps", ai.CleanList(actions), "Keep building on your current preparation.")

	return strings.TrimRight(b.String(), "\n")
}

func hrReport(state interview.State, summary *evaluator.Summary) string {
	var b strings.Builder

	status := string(state.Status)
	if summary.Partial {
		status += " (partial)"
	}

	fmt.Fprintf(&b, "Interview report for session %s\n", state.ID)
	fmt.Fprintf(&b, "Role: %s\n", roleTitle(state, "not specified"))
	fmt.Fprintf(&b, "Candidate level: %s, job seniority: %s\n", state.Candidate.Level, state.Job.Seniority)
	fmt.Fprintf(&b, "Status: %s\n", status)
	if state.AbortReason != "" {
		fmt.Fprintf(&b, "Abort reason: %s\n", state.AbortReason)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Recommendation: %s (overall %.1f/100)\n", summary.Recommendation, summary.Overall)
	fmt.Fprintf(&b, "Justification: %s\n\n", summary.Justification)

	fmt.Fprintf(&b, "Dimensions: clarity %.1f, correctness %.1f, depth %.1f\n\n",
		summary.Dimensions.Clarity, summary.Dimensions.Correctness, summary.Dimensions.Depth)

	b.WriteString("Rounds:\n")
	scores := make(map[int]evaluator.RoundScore, len(summary.Rounds))
	for _, r := range summary.Rounds {
		scores[r.Index] = r
	}
	for _, r := range state.Rounds {
		rs := scores[r.Index]
		line := fmt.Sprintf("  %d. %s [%s] %d/%d answered, weight %.2f", r.Index+1, r.Topic, r.Kind, len(r.Pairs), r.Target, rs.Share)
		switch {
		case r.Skipped:
			line += ", skipped"
		case len(r.Pairs) == 0:
			line += ", not reached"
		}
		if len(r.Pairs) > 0 {
			line += fmt.Sprintf(", score %.1f", rs.Score)
		}
		b.WriteString(line + "\n")

		for i, p := range r.Pairs {
			fmt.Fprintf(&b, "     Q%d: %s\n", i+1, p.Question)
			if p.EvaluationFailed {
				b.WriteString("         not evaluated\n")
				continue
			}
			fmt.Fprintf(&b, "         clarity %d, correctness %d, depth %d", p.Scores.Clarity, p.Scores.Correctness, p.Scores.Depth)
			if p.Note != "" {
				fmt.Fprintf(&b, "; %s", p.Note)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	section(&b, "Strengths", summary.Strengths, "none recorded")
	section(&b, "Weaknesses", summary.Weaknesses, "none recorded")

	fillers, answered := fillerStats(state)
	if answered > 0 {
		fmt.Fprintf(&b, "Speech: %d filler word(s) over %d answer(s), %.1f per answer\n", fillers, answered, float64(fillers)/float64(answered))
	}
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "Evaluation failures: %d answer(s) scored zero\n", summary.Failed)
	}
	fmt.Fprintf(&b, "Audit log: %s (%d entries)\n", AuditRef(state.ID), len(state.Audit))

	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string, items []string, empty string) {
	fmt.Fprintf(b, "%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintf(b, "  - %s\n", empty)
	}
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	b.WriteString("\n")
}

func fillerStats(state interview.State) (fillers, answered int) {
	for _, r := range state.Rounds {
		for _, p := range r.Pairs {
			if p.Answer == "" {
				continue
			}
			fillers += p.Fillers
			answered++
		}
	}
	return fillers, answered
}

func answeredTopics(summary *evaluator.Summary) int {
	n := 0
	for _, r := range summary.Rounds {
		if r.Answered > 0 {
			n++
		}
	}
	return n
}

func roleTitle(state interview.State, fallback string) string {
	if state.Job.RoleTitle != "" {
		return state.Job.RoleTitle
	}
	return fallback
}

// rubric returns the thresholds the summary was scored with. Records written
// before summaries carried their rubric fall back to the default bands.
func rubric(summary *evaluator.Summary) evaluator.Rubric {
	if summary.Rubric.Validate() != nil {
		return evaluator.DefaultRubric()
	}
	return summary.Rubric
}
