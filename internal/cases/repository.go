package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrCaseNotFound = errors.New("case not found")

type Repository interface {
	Save(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	List(ctx context.Context, limit int) ([]Case, error)
}

// --- Postgres ---

type postgresRepo struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, c *Case) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO cases (id, thread_id, title, description, category, priority, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = $3,
			description = $4,
			category = $5,
			priority = $6,
			status = $7,
			metadata = $8,
			updated_at = $10
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.ThreadID, c.Title, c.Description, c.Category, c.Priority, c.Status, metadataJSON, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert case: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	query := `SELECT id, thread_id, title, description, category, priority, status, metadata, created_at, updated_at
		FROM cases WHERE id = $1`

	var c Case
	var metadataJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ThreadID, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status, &metadataJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("query case: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &c, nil
}

func (r *postgresRepo) List(ctx context.Context, limit int) ([]Case, error) {
	query := `SELECT id, thread_id, title, description, category, priority, status, metadata, created_at, updated_at
		FROM cases ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		var c Case
		var metadataJSON []byte
		if err := rows.Scan(&c.ID, &c.ThreadID, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status, &metadataJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- In-memory (development / tests) ---

type memoryRepo struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]Case
}

func NewMemoryRepository() Repository {
	return &memoryRepo{cases: make(map[uuid.UUID]Case)}
}

func (r *memoryRepo) Save(ctx context.Context, c *Case) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	r.cases[c.ID] = *c
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return &c, nil
}

func (r *memoryRepo) List(ctx context.Context, limit int) ([]Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
