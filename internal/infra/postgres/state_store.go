package postgres

import (
	"context"
	"errors"
	"fmt"

	"classroom-sim-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StateStore keeps classroom blobs as JSONB rows keyed by (classroom_id, key).
type StateStore struct {
	pool *pgxpool.Pool
}

func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

func (s *StateStore) Load(ctx context.Context, classroomID, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM classroom_state WHERE classroom_id=$1 AND key=$2`,
		classroomID, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load classroom state %s: %w", key, err)
	}
	return raw, nil
}

func (s *StateStore) Save(ctx context.Context, classroomID, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO classroom_state (classroom_id, key, data, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (classroom_id, key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		classroomID, key, string(data),
	)
	if err != nil {
		return fmt.Errorf("save classroom state %s: %w", key, err)
	}
	return nil
}
