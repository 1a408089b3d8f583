package interview

import (
	"fmt"
	"slices"
	"time"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
)

type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusAborted    Status = "Aborted"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

type EventKind string

const (
	EventStarted           EventKind = "session_started"
	EventRoundOpened       EventKind = "round_opened"
	EventQuestionAsked     EventKind = "question_asked"
	EventDuplicateQuestion EventKind = "question_duplicate"
	EventAnswerScored      EventKind = "answer_scored"
	EventEvaluationFailed  EventKind = "evaluation_failed"
	EventRoundCompleted    EventKind = "round_completed"
	EventRoundSkipped      EventKind = "round_skipped"
	EventEndedEarly        EventKind = "interview_ended_early"
	EventCompleted         EventKind = "session_completed"
	EventAborted           EventKind = "session_aborted"
)

// AuditEntry is one immutable line of the session log kept for HR.
type AuditEntry struct {
	Seq      int       `json:"seq"`
	Round    int       `json:"round"`
	Question int       `json:"question"`
	At       time.Time `json:"at"`
	Kind     EventKind `json:"kind"`
	Detail   string    `json:"detail"`
}

// QAPair is immutable once scored.
type QAPair struct {
	Question         string           `json:"question"`
	Kind             planner.Kind     `json:"kind"`
	Answer           string           `json:"answer"`
	Scores           evaluator.Scores `json:"scores"`
	Note             string           `json:"note"`
	Strengths        []string         `json:"strengths"`
	Improvements     []string         `json:"improvements"`
	EvaluationFailed bool             `json:"evaluation_failed"`
	Fillers          int              `json:"fillers"`
	AskedAt          time.Time        `json:"asked_at"`
	ScoredAt         time.Time        `json:"scored_at"`
}

type Round struct {
	Index    int          `json:"index"`
	Topic    string       `json:"topic"`
	Kind     planner.Kind `json:"kind"`
	Target   int          `json:"target"`
	Pairs    []QAPair     `json:"pairs"`
	Complete bool         `json:"complete"`
	// Skipped marks a round the question generator could not fill.
	Skipped bool `json:"skipped"`
}

type PendingQuestion struct {
	Text    string       `json:"text"`
	Kind    planner.Kind `json:"kind"`
	AskedAt time.Time    `json:"asked_at"`
}

// State is everything a session knows. Only Session mutates it; callers get copies.
type State struct {
	ID              string            `json:"id"`
	Candidate       profile.Candidate `json:"candidate"`
	Job             profile.Job       `json:"job"`
	Plan            *planner.Plan     `json:"plan"`
	Rounds          []Round           `json:"rounds"`
	CurrentRound    int               `json:"current_round"`
	CurrentQuestion int               `json:"current_question"`
	Status          Status            `json:"status"`
	Pending         *PendingQuestion  `json:"pending"`
	AbortReason     string            `json:"abort_reason"`
	Audit           []AuditEntry      `json:"audit"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (s State) Clone() State {
	s.Candidate = s.Candidate.Clone()
	s.Job = s.Job.Clone()
	s.Plan = s.Plan.Clone()
	if s.Rounds != nil {
		rounds := make([]Round, len(s.Rounds))
		for i, r := range s.Rounds {
			rounds[i] = r.clone()
		}
		s.Rounds = rounds
	}
	if s.Pending != nil {
		p := *s.Pending
		s.Pending = &p
	}
	s.Audit = slices.Clone(s.Audit)
	return s
}

func (r Round) clone() Round {
	if r.Pairs == nil {
		return r
	}
	pairs := make([]QAPair, len(r.Pairs))
	for i, p := range r.Pairs {
		p.Strengths = slices.Clone(p.Strengths)
		p.Improvements = slices.Clone(p.Improvements)
		pairs[i] = p
	}
	r.Pairs = pairs
	return r
}

// Answered counts scored pairs across every round.
func (s State) Answered() int {
	n := 0
	for _, r := range s.Rounds {
		n += len(r.Pairs)
	}
	return n
}

// Validate checks the invariants a restored state has to satisfy.
func (s State) Validate() error {
	switch s.Status {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusAborted:
	default:
		return fmt.Errorf("%w: unknown status %q", faults.ErrInvalidInput, s.Status)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: session id is empty", faults.ErrInvalidInput)
	}
	if s.Plan == nil || s.Plan.Len() == 0 {
		return fmt.Errorf("%w: session has no plan", faults.ErrInvalidInput)
	}
	if len(s.Rounds) != s.Plan.Len() {
		return fmt.Errorf("%w: %d rounds for a plan of %d", faults.ErrInvalidInput, len(s.Rounds), s.Plan.Len())
	}
	if s.CurrentRound < 0 || s.CurrentRound >= len(s.Rounds) {
		return fmt.Errorf("%w: current round %d out of range", faults.ErrInvalidInput, s.CurrentRound)
	}
	for _, r := range s.Rounds {
		if len(r.Pairs) > r.Target {
			return fmt.Errorf("%w: round %d has %d answers for a target of %d", faults.ErrInvalidInput, r.Index, len(r.Pairs), r.Target)
		}
	}
	current := s.Rounds[s.CurrentRound]
	if s.CurrentQuestion < 0 || s.CurrentQuestion > current.Target {
		return fmt.Errorf("%w: current question %d out of range for a target of %d", faults.ErrInvalidInput, s.CurrentQuestion, current.Target)
	}
	if s.Pending != nil && (current.Complete || len(current.Pairs) >= current.Target) {
		return fmt.Errorf("%w: pending question on round %d which is already full", faults.ErrInvalidInput, s.CurrentRound)
	}
	if s.Status == StatusInProgress && s.Pending == nil {
		return fmt.Errorf("%w: in-progress session without a pending question", faults.ErrInvalidInput)
	}
	if s.Status != StatusInProgress && s.Pending != nil {
		return fmt.Errorf("%w: %s session with a pending question", faults.ErrInvalidInput, s.Status)
	}
	return nil
}

func (s *State) record(at time.Time, kind EventKind, detail string) {
	s.Audit = append(s.Audit, AuditEntry{
		Seq:      len(s.Audit),
		Round:    s.CurrentRound,
		Question: s.CurrentQuestion,
		At:       at,
		Kind:     kind,
		Detail:   detail,
	})
}

func newRounds(plan *planner.Plan) []Round {
	rounds := make([]Round, plan.Len())
	for i, rs := range plan.Rounds {
		rounds[i] = Round{
			Index:  i,
			Topic:  rs.Topic,
			Kind:   rs.Kind,
			Target: rs.TargetQuestions,
			Pairs:  []QAPair{},
		}
	}
	return rounds
}

func (r Round) answers() []evaluator.Answer {
	out := make([]evaluator.Answer, 0, len(r.Pairs))
	for i, p := range r.Pairs {
		out = append(out, evaluator.Answer{
			Round:        r.Index,
			Question:     i,
			Scores:       p.Scores,
			Failed:       p.EvaluationFailed,
			Strengths:    p.Strengths,
			Improvements: p.Improvements,
		})
	}
	return out
}

// Summarize aggregates a finished session. Aborted sessions produce a partial summary.
func Summarize(state State, rubric evaluator.Rubric) (*evaluator.Summary, error) {
	if !state.Status.Terminal() {
		return nil, fmt.Errorf("%w: summary needs a completed or aborted session, got %s", faults.ErrInvalidState, state.Status)
	}
	if state.Plan == nil {
		return nil, fmt.Errorf("%w: session has no plan", faults.ErrInvalidInput)
	}

	rounds := make([]evaluator.Round, 0, len(state.Rounds))
	var answers []evaluator.Answer
	for _, r := range state.Rounds {
		rounds = append(rounds, evaluator.Round{Index: r.Index, Topic: r.Topic, Share: state.Plan.Weight(r.Index)})
		answers = append(answers, r.answers()...)
	}

	return evaluator.Summarize(rubric, rounds, answers, state.Status == StatusAborted), nil
}
