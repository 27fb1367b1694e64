// Package store persists debates, member responses and syntheses in
// Postgres. It implements the engine's sink boundary and the read side used
// by the history API.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/council/internal/council"
)

type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// ResponseRecord is one persisted member response.
type ResponseRecord struct {
	ModelName    string    `json:"model_name"`
	ResponseText string    `json:"response_text"`
	TokensUsed   int       `json:"tokens_used"`
	ResponseTime float64   `json:"response_time"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// SynthesisRecord is the persisted chairman synthesis for one decision.
type SynthesisRecord struct {
	ConsensusItems []string             `json:"consensus_items"`
	Debates        []council.DebateItem `json:"debates"`
	SynthesisText  string               `json:"synthesis_text"`
	CreatedAt      time.Time            `json:"created_at"`
}

// DecisionSummary is the list view of a decision.
type DecisionSummary struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	ChairmanModel string    `json:"chairman_model"`
	CreatedAt     time.Time `json:"created_at"`
	ResponseCount int       `json:"response_count"`
}

// Decision is the full record: the debate plus its responses and synthesis.
type Decision struct {
	ID            string           `json:"id"`
	Query         string           `json:"query"`
	ChairmanModel string           `json:"chairman_model"`
	CreatedAt     time.Time        `json:"created_at"`
	Responses     []ResponseRecord `json:"responses"`
	Synthesis     *SynthesisRecord `json:"synthesis,omitempty"`
}

// CreateDebate inserts a new decision row and returns its id.
func (s *Store) CreateDebate(ctx context.Context, query, chairman string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO decisions (id, query, chairman_model) VALUES ($1,$2,$3)`,
		id, query, chairman)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordResponse stores one member's terminal response.
func (s *Store) RecordResponse(ctx context.Context, debateID, modelID, text string, tokens int, elapsed time.Duration, status council.Status) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO responses (decision_id, model_name, response_text, tokens_used, response_time, status) VALUES ($1,$2,$3,$4,$5,$6)`,
		debateID, modelID, text, tokens, elapsed.Seconds(), string(status))
	return err
}

// RecordSynthesis stores the parsed chairman output for a decision.
func (s *Store) RecordSynthesis(ctx context.Context, debateID string, syn council.Synthesis) error {
	consensus, err := json.Marshal(syn.ConsensusItems)
	if err != nil {
		return fmt.Errorf("marshal consensus items: %w", err)
	}
	debates, err := json.Marshal(syn.Debates)
	if err != nil {
		return fmt.Errorf("marshal debates: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO syntheses (decision_id, consensus_items, debates, synthesis_text) VALUES ($1,$2,$3,$4)`,
		debateID, consensus, debates, syn.FullText)
	return err
}

// ListDecisions returns decision summaries, newest first.
func (s *Store) ListDecisions(ctx context.Context, skip, limit int) ([]DecisionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT d.id, d.query, d.chairman_model, d.created_at,
		        (SELECT COUNT(*) FROM responses r WHERE r.decision_id = d.id)
		 FROM decisions d ORDER BY d.created_at DESC OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DecisionSummary{}
	for rows.Next() {
		var d DecisionSummary
		if err := rows.Scan(&d.ID, &d.Query, &d.ChairmanModel, &d.CreatedAt, &d.ResponseCount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDecision loads one decision with its responses and synthesis. The bool
// reports whether the decision exists.
func (s *Store) GetDecision(ctx context.Context, id string) (Decision, bool, error) {
	var d Decision
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, query, chairman_model, created_at FROM decisions WHERE id=$1`, id).
		Scan(&d.ID, &d.Query, &d.ChairmanModel, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return Decision{}, false, nil
	}
	if err != nil {
		return Decision{}, false, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT model_name, response_text, tokens_used, response_time, status, created_at
		 FROM responses WHERE decision_id=$1 ORDER BY created_at`, id)
	if err != nil {
		return Decision{}, false, err
	}
	defer rows.Close()
	d.Responses = []ResponseRecord{}
	for rows.Next() {
		var r ResponseRecord
		if err := rows.Scan(&r.ModelName, &r.ResponseText, &r.TokensUsed, &r.ResponseTime, &r.Status, &r.CreatedAt); err != nil {
			return Decision{}, false, err
		}
		d.Responses = append(d.Responses, r)
	}
	if err := rows.Err(); err != nil {
		return Decision{}, false, err
	}

	var consensus, debates []byte
	var syn SynthesisRecord
	err = s.DB.QueryRowContext(ctx,
		`SELECT consensus_items, debates, synthesis_text, created_at FROM syntheses WHERE decision_id=$1`, id).
		Scan(&consensus, &debates, &syn.SynthesisText, &syn.CreatedAt)
	switch err {
	case nil:
		if err := json.Unmarshal(consensus, &syn.ConsensusItems); err != nil {
			return Decision{}, false, fmt.Errorf("unmarshal consensus items: %w", err)
		}
		if err := json.Unmarshal(debates, &syn.Debates); err != nil {
			return Decision{}, false, fmt.Errorf("unmarshal debates: %w", err)
		}
		d.Synthesis = &syn
	case sql.ErrNoRows:
		// debates without a synthesis are legitimate (gate failure, errors)
	default:
		return Decision{}, false, err
	}
	return d, true, nil
}
