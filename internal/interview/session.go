// Package interview drives a single interview session: it asks questions
// round by round, scores every answer and decides when the interview ends.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
	"github.com/spigell/interview-agent/internal/speech"
	"github.com/spigell/interview-agent/internal/utils"
)

// QuestionRequest is what the question generator sees for the next question.
type QuestionRequest struct {
	Candidate  profile.Candidate
	Job        profile.Job
	Round      planner.RoundSpec
	RoundIndex int
	// Prior holds the answered pairs of the current round.
	Prior []QAPair
	// Avoid lists every question already asked in the session.
	Avoid []string
}

type Question struct {
	Text string
	Kind planner.Kind
}

type QuestionGenerator interface {
	Generate(ctx context.Context, req QuestionRequest) (Question, error)
}

type AnswerEvaluator interface {
	Evaluate(ctx context.Context, in evaluator.Input) (*evaluator.Assessment, error)
}

type Options struct {
	Rubric evaluator.Rubric
	// MaxRegenerations is how many extra questions are requested after a
	// duplicate before the round is skipped.
	MaxRegenerations int
	Logger           *zap.Logger
	Clock            func() time.Time
	NewID            func() string
}

func DefaultOptions() Options {
	return Options{
		Rubric:           evaluator.DefaultRubric(),
		MaxRegenerations: 2,
	}
}

func (o Options) withDefaults() (Options, error) {
	if err := validator.New().Var(o.MaxRegenerations, "gte=0,lte=10"); err != nil {
		return o, fmt.Errorf("%w: max regenerations: %w", faults.ErrInvalidInput, err)
	}
	if err := o.Rubric.Validate(); err != nil {
		return o, err
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o, nil
}

// Turn is what the caller learns after Start or SubmitAnswer.
type Turn struct {
	Status Status
	Round  int
	Topic  string
	// Question is empty once the interview is over.
	Question   string
	Kind       planner.Kind
	Assessment *evaluator.Assessment
}

// Session is safe for concurrent use, but it processes one call at a time:
// a call that arrives while another one talks to a collaborator fails with
// faults.ErrInvalidState.
type Session struct {
	mu      sync.Mutex
	state   State
	busy    bool
	summary *evaluator.Summary

	generator QuestionGenerator
	evaluator AnswerEvaluator
	opts      Options
	logger    *zap.Logger
}

func New(candidate profile.Candidate, job profile.Job, plan *planner.Plan, generator QuestionGenerator, eval AnswerEvaluator, opts Options) (*Session, error) {
	if plan == nil || plan.Len() == 0 {
		return nil, fmt.Errorf("%w: interview plan has no rounds", faults.ErrInvalidInput)
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	created := opts.Clock().UTC()
	state := State{
		ID:        opts.NewID(),
		Candidate: candidate.Clone(),
		Job:       job.Clone(),
		Plan:      plan.Clone(),
		Rounds:    newRounds(plan),
		Status:    StatusNotStarted,
		Audit:     []AuditEntry{},
		CreatedAt: created,
		UpdatedAt: created,
	}

	return newSession(state, generator, eval, opts), nil
}

// Restore resumes a persisted session. Terminal sessions get their summary back.
func Restore(state State, generator QuestionGenerator, eval AnswerEvaluator, opts Options) (*Session, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}

	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	s := newSession(state.Clone(), generator, eval, opts)
	if state.Status.Terminal() {
		if s.summary, err = Summarize(s.state, opts.Rubric); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newSession(state State, generator QuestionGenerator, eval AnswerEvaluator, opts Options) *Session {
	return &Session{
		state:     state,
		generator: generator,
		evaluator: eval,
		opts:      opts,
		logger:    logger.WithSession(opts.Logger, state.ID),
	}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// State returns a deep copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Summary is only available once the session is Completed or Aborted.
func (s *Session) Summary() (*evaluator.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.summary == nil {
		return nil, fmt.Errorf("%w: session is %s", faults.ErrInvalidState, s.state.Status)
	}
	return s.summary.Clone(), nil
}

// Start opens the first round and asks its first question.
func (s *Session) Start(ctx context.Context) (*Turn, error) {
	work, err := s.acquire(func(st State) error {
		if st.Status != StatusNotStarted {
			return fmt.Errorf("%w: cannot start a %s session", faults.ErrInvalidState, st.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	work.Status = StatusInProgress
	work.record(s.now(), EventStarted, fmt.Sprintf("%d rounds, %d questions planned", work.Plan.Len(), work.Plan.Budget))

	if err := s.openFrom(ctx, &work, 0); err != nil {
		s.release()
		return nil, err
	}

	return s.commit(StatusNotStarted, work, nil)
}

// SubmitAnswer scores the answer to the pending question and moves the
// interview forward. When a collaborator times out nothing is recorded and the
// same answer can be submitted again.
func (s *Session) SubmitAnswer(ctx context.Context, transcript string) (*Turn, error) {
	work, err := s.acquire(func(st State) error {
		switch {
		case st.Status != StatusInProgress:
			return fmt.Errorf("%w: cannot answer in a %s session", faults.ErrInvalidState, st.Status)
		case st.Pending == nil:
			return fmt.Errorf("%w: no question is in flight", faults.ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	assessment, err := s.score(ctx, &work, transcript)
	if err != nil {
		s.release()
		return nil, err
	}

	round := &work.Rounds[work.CurrentRound]
	if len(round.Pairs) < round.Target {
		err = s.continueRound(ctx, &work)
	} else {
		err = s.closeRound(ctx, &work)
	}
	if err != nil {
		s.release()
		return nil, err
	}

	return s.commit(StatusInProgress, work, assessment)
}

// Abort ends an in-progress interview immediately. Scored answers are kept and
// the summary is flagged partial. An answer still being processed is discarded.
func (s *Session) Abort(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != StatusInProgress {
		return fmt.Errorf("%w: cannot abort a %s session", faults.ErrInvalidState, s.state.Status)
	}

	now := s.now()
	s.state.Status = StatusAborted
	s.state.AbortReason = strings.TrimSpace(reason)
	s.state.Pending = nil
	s.state.record(now, EventAborted, s.state.AbortReason)
	s.state.UpdatedAt = now

	summary, err := Summarize(s.state, s.opts.Rubric)
	if err != nil {
		return err
	}
	s.summary = summary

	s.logger.Info("interview aborted",
		zap.String("reason", s.state.AbortReason),
		zap.Int("answered", s.state.Answered()),
	)
	return nil
}

// acquire marks the session busy and hands out a private copy to work on.
func (s *Session) acquire(check func(State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := check(s.state); err != nil {
		return State{}, err
	}
	if s.busy {
		return State{}, fmt.Errorf("%w: another call is in progress", faults.ErrInvalidState)
	}
	s.busy = true
	return s.state.Clone(), nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// commit swaps in the work copy unless the session changed status meanwhile.
func (s *Session) commit(expect Status, work State, assessment *evaluator.Assessment) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if s.state.Status != expect {
		return nil, fmt.Errorf("%w: session became %s while the call was running", faults.ErrInvalidState, s.state.Status)
	}

	work.UpdatedAt = s.now()
	if work.Status.Terminal() {
		summary, err := Summarize(work, s.opts.Rubric)
		if err != nil {
			return nil, err
		}
		s.summary = summary
	}
	s.state = work

	turn := &Turn{
		Status:     work.Status,
		Round:      work.CurrentRound,
		Topic:      work.Rounds[work.CurrentRound].Topic,
		Assessment: assessment,
	}
	if work.Pending != nil {
		turn.Question = work.Pending.Text
		turn.Kind = work.Pending.Kind
	}
	return turn, nil
}

func (s *Session) score(ctx context.Context, work *State, transcript string) (*evaluator.Assessment, error) {
	pending := *work.Pending
	round := &work.Rounds[work.CurrentRound]
	position := logger.Position(work.CurrentRound, work.CurrentQuestion)

	pair := QAPair{
		Question:     pending.Text,
		Kind:         pending.Kind,
		Answer:       strings.TrimSpace(transcript),
		Strengths:    []string{},
		Improvements: []string{},
		Fillers:      speech.CountFillers(transcript),
		AskedAt:      pending.AskedAt,
	}

	assessment, err := s.evaluator.Evaluate(ctx, evaluator.Input{
		Question:  pending.Text,
		Answer:    pair.Answer,
		Topic:     round.Topic,
		Kind:      string(pending.Kind),
		Candidate: work.Candidate,
		Job:       work.Job,
	})
	switch {
	case err == nil:
		pair.Scores = assessment.Scores
		pair.Note = assessment.Note
		pair.Strengths = append(pair.Strengths, assessment.Strengths...)
		pair.Improvements = append(pair.Improvements, assessment.Improvements...)
	case errors.Is(err, faults.ErrEvaluationFailed):
		s.logger.Warn("answer could not be evaluated, scoring it zero", append(position, zap.Error(err))...)
		pair.EvaluationFailed = true
		pair.Note = "answer could not be evaluated"
		assessment = nil
	default:
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}

	pair.ScoredAt = s.now()
	round.Pairs = append(round.Pairs, pair)
	work.Pending = nil

	if pair.EvaluationFailed {
		work.record(pair.ScoredAt, EventEvaluationFailed, utils.TruncateForLog(err.Error(), 200))
	} else {
		work.record(pair.ScoredAt, EventAnswerScored, fmt.Sprintf("clarity=%d correctness=%d depth=%d",
			pair.Scores.Clarity, pair.Scores.Correctness, pair.Scores.Depth))
	}
	work.CurrentQuestion = len(round.Pairs)

	s.logger.Info("answer scored", append(position,
		zap.Float64("mean", pair.Scores.Mean()),
		zap.Int("fillers", pair.Fillers),
		zap.Bool("evaluation_failed", pair.EvaluationFailed),
	)...)

	return assessment, nil
}

// continueRound asks the next question of the current round. If the generator
// gives up, the rest of the round is skipped.
func (s *Session) continueRound(ctx context.Context, work *State) error {
	q, err := s.ask(ctx, work)
	switch {
	case err == nil:
		s.setPending(work, q)
		return nil
	case errors.Is(err, faults.ErrGenerationExhausted):
		s.skipRound(work, err)
		return s.openFrom(ctx, work, work.CurrentRound+1)
	default:
		return err
	}
}

// closeRound marks the current round complete and either opens the next one or
// ends the interview when the round score misses the pass threshold.
func (s *Session) closeRound(ctx context.Context, work *State) error {
	round := &work.Rounds[work.CurrentRound]
	round.Complete = true
	score := evaluator.ScoreRound(round.answers())
	work.record(s.now(), EventRoundCompleted, fmt.Sprintf("score=%.2f", score))

	s.logger.Info("round completed", append(logger.Position(work.CurrentRound, work.CurrentQuestion),
		zap.String("topic", round.Topic),
		zap.Float64("score", score),
	)...)

	if work.CurrentRound < len(work.Rounds)-1 && !s.opts.Rubric.PassesRound(score) {
		work.record(s.now(), EventEndedEarly, fmt.Sprintf("round score %.2f below %d", score, s.opts.Rubric.RoundPassThreshold))
		s.finish(work)
		return nil
	}

	return s.openFrom(ctx, work, work.CurrentRound+1)
}

// openFrom opens rounds starting at index until one gets a question. Rounds the
// generator cannot fill are skipped; running out of rounds completes the session.
func (s *Session) openFrom(ctx context.Context, work *State, index int) error {
	for i := index; i < len(work.Rounds); i++ {
		work.CurrentRound = i
		work.CurrentQuestion = 0
		work.record(s.now(), EventRoundOpened, work.Rounds[i].Topic)

		q, err := s.ask(ctx, work)
		if err == nil {
			s.setPending(work, q)
			return nil
		}
		if !errors.Is(err, faults.ErrGenerationExhausted) {
			return err
		}
		s.skipRound(work, err)
	}

	s.finish(work)
	return nil
}

// ask requests a question for the current round and rejects repeats, comparing
// case-insensitively with collapsed whitespace.
func (s *Session) ask(ctx context.Context, work *State) (Question, error) {
	round := work.Rounds[work.CurrentRound]

	asked := make(map[string]struct{})
	avoid := []string{}
	for _, r := range work.Rounds {
		for _, p := range r.Pairs {
			asked[utils.NormalizeText(p.Question)] = struct{}{}
			avoid = append(avoid, p.Question)
		}
	}

	req := QuestionRequest{
		Candidate:  work.Candidate,
		Job:        work.Job,
		Round:      work.Plan.Rounds[work.CurrentRound],
		RoundIndex: work.CurrentRound,
		Prior:      round.clone().Pairs,
		Avoid:      avoid,
	}

	for attempt := 0; attempt <= s.opts.MaxRegenerations; attempt++ {
		q, err := s.generator.Generate(ctx, req)
		if err != nil {
			return Question{}, fmt.Errorf("generate question: %w", err)
		}

		q.Text = strings.TrimSpace(q.Text)
		key := utils.NormalizeText(q.Text)
		if _, dup := asked[key]; key != "" && !dup {
			if q.Kind == "" {
				q.Kind = round.Kind
			}
			return q, nil
		}

		work.record(s.now(), EventDuplicateQuestion, q.Text)
		s.logger.Debug("question generator repeated itself",
			append(logger.Position(work.CurrentRound, work.CurrentQuestion),
				zap.Int("attempt", attempt+1),
				zap.String("question", utils.TruncateForLog(q.Text, 120)),
			)...)
	}

	return Question{}, fmt.Errorf("%w: no new question for round %d after %d attempts",
		faults.ErrGenerationExhausted, work.CurrentRound, s.opts.MaxRegenerations+1)
}

func (s *Session) setPending(work *State, q Question) {
	now := s.now()
	work.Pending = &PendingQuestion{Text: q.Text, Kind: q.Kind, AskedAt: now}
	work.record(now, EventQuestionAsked, q.Text)

	s.logger.Info("question asked", append(logger.Position(work.CurrentRound, work.CurrentQuestion),
		zap.String("topic", work.Rounds[work.CurrentRound].Topic),
		zap.String("kind", string(q.Kind)),
	)...)
}

func (s *Session) skipRound(work *State, cause error) {
	round := &work.Rounds[work.CurrentRound]
	round.Complete = true
	round.Skipped = true
	work.record(s.now(), EventRoundSkipped, cause.Error())

	s.logger.Warn("round skipped", append(logger.Position(work.CurrentRound, work.CurrentQuestion),
		zap.String("topic", round.Topic),
		zap.Error(cause),
	)...)
}

func (s *Session) finish(work *State) {
	work.Status = StatusCompleted
	work.Pending = nil
	work.record(s.now(), EventCompleted, fmt.Sprintf("%d answers", work.Answered()))
	s.logger.Info("interview completed", zap.Int("answered", work.Answered()))
}

func (s *Session) now() time.Time {
	return s.opts.Clock().UTC()
}
