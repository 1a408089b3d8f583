package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/store"
)

const (
	app = "interview-agent"
)

type Config struct {
	Interview *InterviewConfig `mapstructure:"interview" validate:"required"`
	Planner   planner.Config   `mapstructure:"planner"`
	Rubric    evaluator.Rubric `mapstructure:"rubric"`
	Store     store.Config     `mapstructure:"store"`
	AI        *AIConfig        `mapstructure:"ai" validate:"required"`
	JobBoard  JobBoardConfig   `mapstructure:"job-board"`
}

// JobBoardConfig points at the hh.ru API used by run --jd-vacancy.
type JobBoardConfig struct {
	APIURL string `mapstructure:"api-url" validate:"omitempty,url"`
	Token  string `mapstructure:"token"`
}

type InterviewConfig struct {
	// Level overrides the experience level guessed from the resume.
	Level            string        `mapstructure:"level"`
	MaxRegenerations int           `mapstructure:"max-regenerations" validate:"gte=0,lte=10"`
	TurnTimeout      time.Duration `mapstructure:"turn-timeout" validate:"gt=0"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKey             string `mapstructure:"api-key"`
	APIKeyFile         string `mapstructure:"api-key-file"`
	Model              string `mapstructure:"model"`
	TranscriptionModel string `mapstructure:"transcription-model"`
	MaxRetries         int    `mapstructure:"max-retries" validate:"gte=0,lte=10"`
	MaxLogLength       int    `mapstructure:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-agent runs an AI voice interview against a resume and a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	p := planner.DefaultConfig()
	viper.SetDefault("planner.min-rounds", p.MinRounds)
	viper.SetDefault("planner.max-rounds", p.MaxRounds)
	viper.SetDefault("planner.questions-per-round", p.QuestionsPerRound)
	viper.SetDefault("planner.resume-questions", p.ResumeQuestions)
	viper.SetDefault("planner.project-questions", p.ProjectQuestions)

	r := evaluator.DefaultRubric()
	viper.SetDefault("rubric.hire-threshold", r.HireThreshold)
	viper.SetDefault("rubric.hold-threshold", r.HoldThreshold)
	viper.SetDefault("rubric.round-pass-threshold", r.RoundPassThreshold)

	viper.SetDefault("interview.max-regenerations", 2)
	viper.SetDefault("interview.turn-timeout", 2*time.Minute)

	viper.SetDefault("store.backend", store.BackendFile)
	viper.SetDefault("store.dir", "sessions")
	viper.SetDefault("store.redis.ttl", 30*24*time.Hour)

	viper.SetDefault("job-board.api-url", "https://api.hh.ru")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without a config file everything comes from defaults and the environment,
	// but a broken file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
