package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/ai/gemini"
	"github.com/spigell/interview-agent/internal/document"
	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/jobboard"
	logging "github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/matcher"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
	"github.com/spigell/interview-agent/internal/questioner"
	"github.com/spigell/interview-agent/internal/report"
	"github.com/spigell/interview-agent/internal/secrets"
	"github.com/spigell/interview-agent/internal/speech"
	"github.com/spigell/interview-agent/internal/store"
)

const (
	PromptAnswerText  = "Type the answer"
	PromptAnswerAudio = "Answer with a recorded audio file"
	PromptAbort       = "Abort the interview"
)

var errAbort = errors.New("abort requested")

var prompt = promptui.Select{
	Label: "Answer?",
	Items: []string{PromptAnswerText, PromptAnswerAudio, PromptAbort},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("resume", "r", "", "resume file (PDF or plain text)")
	runCmd.Flags().String("jd", "", "job description file (PDF or plain text)")
	runCmd.Flags().String("jd-vacancy", "", "hh.ru vacancy id or link to take the job description from instead of --jd")
	runCmd.Flags().StringP("level", "l", "", "candidate experience level: junior, mid or senior. Guessed from the resume when unset.")
	runCmd.Flags().StringP("session", "s", "", "continue a stored in-progress session instead of starting a new one")

	viper.BindPFlag("interview.level", runCmd.Flags().Lookup("level"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logging.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interview-agent", zap.String("version", version))
	logger.Debug("starting with config",
		zap.Any("interview", config.Interview),
		zap.Any("planner", config.Planner),
		zap.Any("rubric", config.Rubric),
		zap.String("store", config.Store.Backend),
	)

	generator, transcriber, err := newGemini(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the gemini client", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file"),
		)
	}

	sessions, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the session store", zap.Error(err))
	}
	defer sessions.Close()

	var session *interview.Session
	if id := strings.TrimSpace(cmd.Flag("session").Value.String()); id != "" {
		session, err = restoreSession(ctx, sessions, id, generator, config, logger)
	} else {
		session, err = prepareSession(ctx, cmd, generator, config, logger)
	}
	if err != nil {
		logger.Fatal("preparing the interview", zap.Error(err))
	}

	logger.Info("interview session ready", zap.String(logging.FieldSession, session.ID()))

	if err := conduct(ctx, session, transcriber, sessions, config, logger); err != nil {
		save(ctx, sessions, session, logger)
		logger.Fatal("interview stopped", zap.Error(err), zap.String("hint", "continue later with --session "+session.ID()))
	}

	if err := printReports(cmd, session); err != nil {
		logger.Fatal("rendering reports", zap.Error(err))
	}
}

func newGemini(ctx context.Context, cfg *AIConfig, base *zap.Logger) (*gemini.Generator, *gemini.Transcriber, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, err
	}

	genLogger := logging.WithProvider(base, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, gemini.Options{
		APIKey:       apiKey,
		Model:        cfg.Gemini.Model,
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
		Logger:       genLogger,
	})
	if err != nil {
		return nil, nil, err
	}

	transcriber, err := gemini.NewTranscriber(generator, cfg.Gemini.TranscriptionModel)
	if err != nil {
		return nil, nil, err
	}

	return generator, transcriber, nil
}

func sessionOptions(config *Config, base *zap.Logger) interview.Options {
	opts := interview.DefaultOptions()
	opts.Rubric = config.Rubric
	opts.MaxRegenerations = config.Interview.MaxRegenerations
	opts.Logger = base
	return opts
}

// prepareSession runs the pipeline in front of the interview: extraction,
// profile analysis, matching and planning.
func prepareSession(ctx context.Context, cmd *cobra.Command, generator *gemini.Generator, config *Config, logger *zap.Logger) (*interview.Session, error) {
	resumePath := strings.TrimSpace(cmd.Flag("resume").Value.String())
	jdPath := strings.TrimSpace(cmd.Flag("jd").Value.String())
	vacancy := strings.TrimSpace(cmd.Flag("jd-vacancy").Value.String())
	if resumePath == "" || (jdPath == "" && vacancy == "") {
		return nil, errors.New("--resume and one of --jd or --jd-vacancy are required to start a new interview")
	}

	extractor := document.NewExtractor()
	resumeText, err := readDocument(ctx, extractor, resumePath)
	if err != nil {
		return nil, err
	}

	var jdText string
	if vacancy != "" {
		board := jobboard.New(logger)
		if config.JobBoard.APIURL != "" {
			board.APIURL = config.JobBoard.APIURL
		}
		board.Token = config.JobBoard.Token
		jdText, err = board.JobDescription(ctx, vacancy)
	} else {
		jdText, err = readDocument(ctx, extractor, jdPath)
	}
	if err != nil {
		return nil, err
	}

	var level profile.Level
	if raw := strings.TrimSpace(config.Interview.Level); raw != "" {
		if level, err = profile.ParseLevel(raw); err != nil {
			return nil, err
		}
	}

	candidate, job, err := profile.NewAnalyzer(generator, logger).Analyze(ctx, resumeText, jdText, level)
	if err != nil {
		return nil, fmt.Errorf("analyzing resume and job description: %w", err)
	}

	gap, err := matcher.Match(candidate, job)
	if err != nil {
		return nil, err
	}
	logger.Info("skill gap",
		zap.Strings("matched", gap.Matched),
		zap.Strings("missing", gap.Missing),
		zap.Float64("relevance", gap.Relevance),
	)

	pl, err := planner.New(config.Planner)
	if err != nil {
		return nil, err
	}
	plan, err := pl.Plan(gap, candidate.Level, candidate.HasProjects())
	if err != nil {
		return nil, err
	}
	for i, r := range plan.Rounds {
		logger.Info("planned round",
			zap.Int(logging.FieldRound, i),
			zap.String("topic", r.Topic),
			zap.String("kind", string(r.Kind)),
			zap.Int("questions", r.TargetQuestions),
		)
	}

	return interview.New(candidate, job, plan,
		questioner.New(generator, logger),
		evaluator.New(generator, logger),
		sessionOptions(config, logger),
	)
}

func restoreSession(ctx context.Context, sessions store.Store, id string, generator *gemini.Generator, config *Config, logger *zap.Logger) (*interview.Session, error) {
	rec, err := sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.State.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is already %s, use the report command", faults.ErrInvalidState, id, rec.State.Status)
	}

	return interview.Restore(rec.State,
		questioner.New(generator, logger),
		evaluator.New(generator, logger),
		sessionOptions(config, logger),
	)
}

func readDocument(ctx context.Context, extractor document.Extractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := extractor.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return text, nil
}

// conduct drives the question/answer loop until the interview ends. Every turn
// is persisted so an interrupted interview can be continued.
func conduct(ctx context.Context, session *interview.Session, transcriber speech.Transcriber, sessions store.Store, config *Config, logger *zap.Logger) error {
	if session.State().Status == interview.StatusNotStarted {
		turnCtx, cancel := context.WithTimeout(ctx, config.Interview.TurnTimeout)
		_, err := session.Start(turnCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("starting the interview: %w", err)
		}
		save(ctx, sessions, session, logger)
	}

	for {
		state := session.State()
		if state.Status.Terminal() {
			return nil
		}
		if state.Pending == nil {
			return fmt.Errorf("%w: no question in flight", faults.ErrInvalidState)
		}

		round := state.Rounds[state.CurrentRound]
		fmt.Printf("\n[round %d/%d: %s, question %d/%d]\n%s\n\n",
			state.CurrentRound+1, len(state.Rounds), round.Topic,
			state.CurrentQuestion+1, round.Target, state.Pending.Text)

		answer, err := askAnswer(ctx, transcriber, logger)
		if errors.Is(err, errAbort) {
			reason, _ := (&promptui.Prompt{Label: "Reason"}).Run()
			if err := session.Abort(reason); err != nil {
				return err
			}
			save(ctx, sessions, session, logger)
			return nil
		}
		if errors.Is(err, faults.ErrTranscriptionFailed) {
			logger.Warn("transcription failed, answer again", zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}

		turnCtx, cancel := context.WithTimeout(ctx, config.Interview.TurnTimeout)
		turn, err := session.SubmitAnswer(turnCtx, answer)
		cancel()
		if errors.Is(err, faults.ErrCollaboratorTimeout) {
			logger.Warn("the model did not respond in time, the same question stays open", zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}

		if turn.Assessment != nil {
			logger.Debug("answer assessed",
				zap.Int("clarity", turn.Assessment.Scores.Clarity),
				zap.Int("correctness", turn.Assessment.Scores.Correctness),
				zap.Int("depth", turn.Assessment.Scores.Depth),
				zap.String("note", turn.Assessment.Note),
			)
		}
		save(ctx, sessions, session, logger)
	}
}

func askAnswer(ctx context.Context, transcriber speech.Transcriber, logger *zap.Logger) (string, error) {
	_, action, err := prompt.Run()
	if err != nil {
		return "", err
	}

	switch action {
	case PromptAbort:
		return "", errAbort
	case PromptAnswerText:
		return (&promptui.Prompt{Label: "Your answer"}).Run()
	case PromptAnswerAudio:
		path, err := (&promptui.Prompt{
			Label: "Audio file",
			Validate: func(s string) error {
				_, err := os.Stat(strings.TrimSpace(s))
				return err
			},
		}).Run()
		if err != nil {
			return "", err
		}

		path = strings.TrimSpace(path)
		audio, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}

		transcript, err := transcriber.Transcribe(ctx, audio, audioMIMEType(path))
		if err != nil {
			return "", err
		}
		if transcript == "" {
			logger.Info("no speech detected, submitting an empty answer")
		} else {
			fmt.Printf("transcript: %s\n", transcript)
		}
		return transcript, nil
	default:
		return "", fmt.Errorf("invalid action: %s", action)
	}
}

func audioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "audio/") {
		return t
	}
	return speech.DefaultMIMEType
}

func save(ctx context.Context, sessions store.Store, session *interview.Session, logger *zap.Logger) {
	if err := sessions.Save(ctx, store.Snapshot(session)); err != nil {
		logger.Error("saving the session", zap.Error(err), zap.String(logging.FieldSession, session.ID()))
	}
}

func printReports(cmd *cobra.Command, session *interview.Session) error {
	summary, err := session.Summary()
	if err != nil {
		return err
	}

	r, err := report.Render(session.State(), summary)
	if err != nil {
		return err
	}

	writeReport(cmd, r, "both")
	return nil
}
