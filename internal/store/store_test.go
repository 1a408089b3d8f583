package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/planner"
	"github.com/spigell/interview-agent/internal/profile"
)

func sampleRecord(id string) Record {
	at := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	plan := &planner.Plan{
		Level:  profile.LevelMid,
		Rounds: []planner.RoundSpec{{Topic: "Docker", Kind: planner.KindSkill, TargetQuestions: 1, Skill: "Docker", GapWeight: 1.25}},
		Budget: 1,
	}
	state := interview.State{
		ID:        id,
		Candidate: profile.NewCandidate("resume", []string{"Python", "SQL"}, profile.LevelJunior),
		Job:       profile.NewJob("jd", []string{"Python", "SQL", "Docker"}, profile.LevelMid),
		Plan:      plan,
		Rounds: []interview.Round{{
			Index: 0, Topic: "Docker", Kind: planner.KindSkill, Target: 1, Complete: true,
			Pairs: []interview.QAPair{{
				Question: "What is a layer?", Kind: planner.KindSkill, Answer: "um, a diff",
				Scores:    evaluator.Scores{Clarity: 61, Correctness: 70, Depth: 33},
				Strengths: []string{"short"}, Improvements: []string{},
				Fillers: 1, AskedAt: at, ScoredAt: at.Add(time.Second),
			}},
		}},
		Status: interview.StatusCompleted,
		Audit: []interview.AuditEntry{
			{Seq: 0, At: at, Kind: interview.EventStarted, Detail: "1 rounds"},
			{Seq: 1, At: at, Kind: interview.EventCompleted},
		},
		CreatedAt: at,
		UpdatedAt: at.Add(2 * time.Second),
	}
	summary, err := interview.Summarize(state, evaluator.DefaultRubric())
	if err != nil {
		panic(err)
	}
	return Record{State: state, Summary: summary, SavedAt: at.Add(3 * time.Second)}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	want := sampleRecord("3f1c2a")
	require.NoError(t, fs.Save(context.Background(), want))

	got, err := fs.Load(context.Background(), "3f1c2a")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	ids, err := fs.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3f1c2a"}, ids)
}

func TestFileStoreOverwrites(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	rec := sampleRecord("s1")
	require.NoError(t, fs.Save(context.Background(), rec))
	rec.State.AbortReason = "changed"
	require.NoError(t, fs.Save(context.Background(), rec))

	got, err := fs.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.State.AbortReason)

	entries, err := os.ReadDir(fs.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreNotFound(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsPathLikeIDs(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b"} {
		_, err := fs.Load(context.Background(), id)
		assert.ErrorIs(t, err, faults.ErrInvalidInput, id)
		assert.ErrorIs(t, fs.Save(context.Background(), sampleRecord(id)), faults.ErrInvalidInput, id)
	}
}

func TestDecodeValidatesSchema(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"state": `,
		"missing state":  `{"saved_at": "2026-03-01T10:00:00Z"}`,
		"bad status":     `{"saved_at": "2026-03-01T10:00:00Z", "state": {"id": "x", "status": "Paused", "plan": {"rounds": [{"topic": "t", "kind": "skill", "target_questions": 1}], "budget": 1}, "rounds": [], "current_round": 0, "current_question": 0, "audit": []}}`,
		"score too high": `{"saved_at": "2026-03-01T10:00:00Z", "state": {"id": "x", "status": "Completed", "plan": {"rounds": [{"topic": "t", "kind": "skill", "target_questions": 1}], "budget": 1}, "rounds": [{"index": 0, "topic": "t", "target": 1, "complete": true, "skipped": false, "pairs": [{"question": "q", "answer": "a", "scores": {"clarity": 101, "correctness": 0, "depth": 0}}]}], "current_round": 0, "current_question": 1, "audit": []}}`,
	}
	for name, doc := range cases {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, faults.ErrInvalidInput, name)
	}
}

func TestFileStoreLoadRejectsCorruptFile(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fs.path("broken"), []byte(`{"state": {"id": "broken"}}`), 0o644))

	_, err = fs.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, faults.ErrInvalidInput)
}

func TestSnapshotOfRunningSessionHasNoSummary(t *testing.T) {
	plan := &planner.Plan{Rounds: []planner.RoundSpec{{Topic: "t", Kind: planner.KindGeneric, TargetQuestions: 1}}, Budget: 1}
	s, err := interview.New(profile.NewCandidate("r", nil, profile.LevelMid), profile.NewJob("j", nil, profile.LevelMid), plan, nil, nil, interview.DefaultOptions())
	require.NoError(t, err)

	rec := Snapshot(s)
	assert.Nil(t, rec.Summary)
	assert.Equal(t, s.ID(), rec.State.ID)
}

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, _ string, _ int64) *redis.ScanCmd {
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisStoreRoundTrip(t *testing.T) {
	client := newFakeRedis()
	rs := NewRedisStore(client, "", time.Hour)

	want := sampleRecord("abc")
	require.NoError(t, rs.Save(context.Background(), want))
	assert.Contains(t, client.data, "interview:session:abc")
	assert.Equal(t, time.Hour, client.ttls["interview:session:abc"])

	got, err := rs.Load(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	ids, err := rs.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)

	_, err = rs.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenDefaultsToFileStore(t *testing.T) {
	s, err := Open(context.Background(), Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(context.Background(), Config{Backend: "s3"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Backend: BackendRedis})
	assert.Error(t, err)
}
