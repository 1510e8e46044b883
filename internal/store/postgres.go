package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"medical-intake-agent/internal/intake"
)

// PostgresStore persists conversation state in a single table, one row per
// thread, with the message history and stage outputs as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) Get(ctx context.Context, threadID string) (*intake.ConversationState, error) {
	query := `SELECT thread_id, messages, stage_status, triage_result, medical_data, created_at, updated_at
		FROM conversations WHERE thread_id = $1`

	row := r.db.QueryRowContext(ctx, query, threadID)

	var (
		state        intake.ConversationState
		messagesJSON []byte
		statusJSON   []byte
		triageJSON   []byte
		medicalJSON  []byte
	)
	err := row.Scan(
		&state.ThreadID,
		&messagesJSON,
		&statusJSON,
		&triageJSON,
		&medicalJSON,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, intake.ErrThreadNotFound
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &state.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	if len(statusJSON) > 0 {
		if err := json.Unmarshal(statusJSON, &state.StageStatus); err != nil {
			return nil, fmt.Errorf("unmarshal stage status: %w", err)
		}
	}
	if len(triageJSON) > 0 {
		if err := json.Unmarshal(triageJSON, &state.TriageResult); err != nil {
			return nil, fmt.Errorf("unmarshal triage result: %w", err)
		}
	}
	if len(medicalJSON) > 0 {
		if err := json.Unmarshal(medicalJSON, &state.MedicalData); err != nil {
			return nil, fmt.Errorf("unmarshal medical data: %w", err)
		}
	}
	return &state, nil
}

func (r *PostgresStore) Put(ctx context.Context, state *intake.ConversationState) error {
	messagesJSON, err := json.Marshal(state.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	statusJSON, err := json.Marshal(state.StageStatus)
	if err != nil {
		return fmt.Errorf("marshal stage status: %w", err)
	}

	var triageJSON, medicalJSON []byte
	if state.TriageResult != nil {
		if triageJSON, err = json.Marshal(state.TriageResult); err != nil {
			return fmt.Errorf("marshal triage result: %w", err)
		}
	}
	if state.MedicalData != nil {
		if medicalJSON, err = json.Marshal(state.MedicalData); err != nil {
			return fmt.Errorf("marshal medical data: %w", err)
		}
	}

	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	state.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO conversations (thread_id, messages, stage_status, triage_result, medical_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (thread_id) DO UPDATE SET
			messages = $2,
			stage_status = $3,
			triage_result = $4,
			medical_data = $5,
			updated_at = $7
	`
	_, err = r.db.ExecContext(ctx, query,
		state.ThreadID, messagesJSON, statusJSON, triageJSON, medicalJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}
