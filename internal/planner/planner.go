// Package planner turns a skill gap profile into the fixed sequence of rounds
// an interview session walks through.
package planner

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/matcher"
	"github.com/spigell/interview-agent/internal/profile"
)

type Kind string

const (
	KindResume  Kind = "resume"
	KindSkill   Kind = "skill"
	KindProject Kind = "project"
	KindGeneric Kind = "generic"
)

// ParseKind maps a model supplied tag onto a round kind. Unknown tags fall back to fallback.
func ParseKind(s string, fallback Kind) Kind {
	switch k := Kind(s); k {
	case KindResume, KindSkill, KindProject, KindGeneric:
		return k
	default:
		return fallback
	}
}

// Config is the round allocation policy. It is shared read-only between sessions.
type Config struct {
	MinRounds         int `mapstructure:"min-rounds" json:"min_rounds" validate:"gte=1"`
	MaxRounds         int `mapstructure:"max-rounds" json:"max_rounds" validate:"gtefield=MinRounds"`
	QuestionsPerRound int `mapstructure:"questions-per-round" json:"questions_per_round" validate:"gte=1,lte=10"`
	ResumeQuestions   int `mapstructure:"resume-questions" json:"resume_questions" validate:"gte=1,lte=10"`
	ProjectQuestions  int `mapstructure:"project-questions" json:"project_questions" validate:"gte=1,lte=10"`
}

func DefaultConfig() Config {
	return Config{
		MinRounds:         3,
		MaxRounds:         6,
		QuestionsPerRound: 2,
		ResumeQuestions:   2,
		ProjectQuestions:  2,
	}
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: planner config: %w", faults.ErrInvalidInput, err)
	}
	return nil
}

type RoundSpec struct {
	Topic           string  `json:"topic"`
	Kind            Kind    `json:"kind"`
	TargetQuestions int     `json:"target_questions"`
	Skill           string  `json:"skill,omitempty"`
	GapWeight       float64 `json:"gap_weight,omitempty"`
}

// Plan is computed once per session and never changes afterwards.
type Plan struct {
	Rounds []RoundSpec   `json:"rounds"`
	Level  profile.Level `json:"level"`
	Budget int           `json:"budget"`
}

func (p *Plan) Len() int { return len(p.Rounds) }

func (p *Plan) TotalQuestions() int {
	total := 0
	for _, r := range p.Rounds {
		total += r.TargetQuestions
	}
	return total
}

// Weight is round i's share of the question budget.
func (p *Plan) Weight(i int) float64 {
	if i < 0 || i >= len(p.Rounds) || p.Budget == 0 {
		return 0
	}
	return float64(p.Rounds[i].TargetQuestions) / float64(p.Budget)
}

func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Rounds = slices.Clone(p.Rounds)
	return &cp
}

type Planner struct {
	cfg Config
}

func New(cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg}, nil
}

func (p *Planner) Config() Config { return p.cfg }

var genericTopics = []string{
	"Problem solving",
	"Collaboration and communication",
	"Debugging and incident handling",
	"Learning and growth",
}

// Plan allocates rounds for one candidate. Skills with a larger gap weight come
// first and get more questions; equal weights keep job description order.
func (p *Planner) Plan(gap *matcher.GapProfile, level profile.Level, hasProjects bool) (*Plan, error) {
	if gap == nil {
		return nil, fmt.Errorf("%w: gap profile is nil", faults.ErrInvalidInput)
	}
	if level.Rank() == 0 {
		return nil, fmt.Errorf("%w: unknown experience level %q", faults.ErrInvalidInput, level)
	}

	plan := &Plan{Level: level}

	if gap.Empty() {
		plan.Rounds = []RoundSpec{p.generic(0)}
		plan.Budget = plan.TotalQuestions()
		return plan, nil
	}

	skills := slices.Clone(gap.Skills)
	slices.SortStableFunc(skills, func(a, b matcher.SkillGap) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Order, b.Order)
	})

	skillRounds := make([]RoundSpec, 0, len(skills))
	for _, s := range skills {
		target := max(1, int(math.Round(float64(p.cfg.QuestionsPerRound)*s.Weight)))
		if level == profile.LevelJunior {
			target = max(1, target-1)
		}
		skillRounds = append(skillRounds, RoundSpec{
			Topic:           s.Skill,
			Kind:            KindSkill,
			TargetQuestions: target,
			Skill:           s.Skill,
			GapWeight:       s.Weight,
		})
	}

	resume := RoundSpec{Topic: "Resume walkthrough", Kind: KindResume, TargetQuestions: p.cfg.ResumeQuestions}

	var project *RoundSpec
	if hasProjects {
		target := p.cfg.ProjectQuestions
		if level == profile.LevelSenior {
			target++
		}
		project = &RoundSpec{Topic: "Project deep dive", Kind: KindProject, TargetQuestions: target}
	}

	fixed := 1
	if project != nil {
		fixed++
	}
	if room := p.cfg.MaxRounds - fixed; len(skillRounds) > room {
		skillRounds = skillRounds[:max(room, 0)]
	}
	if project != nil && 1+len(skillRounds)+1 > p.cfg.MaxRounds {
		project = nil
	}

	plan.Rounds = append(plan.Rounds, resume)
	plan.Rounds = append(plan.Rounds, skillRounds...)
	for i := 0; len(plan.Rounds)+boolToInt(project != nil) < p.cfg.MinRounds; i++ {
		plan.Rounds = append(plan.Rounds, p.generic(i))
	}
	if project != nil {
		plan.Rounds = append(plan.Rounds, *project)
	}

	plan.Budget = plan.TotalQuestions()
	return plan, nil
}

func (p *Planner) generic(i int) RoundSpec {
	topic := genericTopics[i%len(genericTopics)]
	return RoundSpec{Topic: topic, Kind: KindGeneric, TargetQuestions: p.cfg.QuestionsPerRound}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
