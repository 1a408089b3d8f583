// Package store persists interview sessions as JSON documents keyed by session id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/interview-agent/internal/evaluator"
	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
)

var ErrNotFound = errors.New("session not found")

//go:embed record.schema.json
var recordSchema string

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// Record is what gets stored for a session: its full state and, once the
// interview is over, the summary.
type Record struct {
	State   interview.State    `json:"state"`
	Summary *evaluator.Summary `json:"summary"`
	SavedAt time.Time          `json:"saved_at"`
}

type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Snapshot captures a session for persistence.
func Snapshot(s *interview.Session) Record {
	rec := Record{State: s.State(), SavedAt: time.Now().UTC()}
	if summary, err := s.Summary(); err == nil {
		rec.Summary = summary
	}
	return rec
}

func Encode(rec Record) ([]byte, error) {
	if err := checkID(rec.State.ID); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", rec.State.ID, err)
	}
	return data, nil
}

// Decode validates data against the record schema before unmarshalling it.
func Decode(data []byte) (*Record, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: session record is not valid JSON: %w", faults.ErrInvalidInput, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, fmt.Errorf("%w: session record does not match schema: %s", faults.ErrInvalidInput, strings.Join(problems, "; "))
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode session record: %w", faults.ErrInvalidInput, err)
	}
	return &rec, nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad session id %q", faults.ErrInvalidInput, id)
	}
	return nil
}
