package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"muxlti/internal/domain"
)

type LtiContextRepository struct {
	db *sqlx.DB
}

func NewLtiContextRepository(db *sqlx.DB) *LtiContextRepository {
	return &LtiContextRepository{db: db}
}

// GetOrCreate находит контекст по context_id или создает его.
func (r *LtiContextRepository) GetOrCreate(ctx context.Context, contextID string) (*domain.LtiContext, error) {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO lti_contexts (context_id)
        VALUES ($1)
        ON CONFLICT (context_id) DO NOTHING`, contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to create lti context: %w", err)
	}

	return r.GetByContextID(ctx, contextID)
}

func (r *LtiContextRepository) GetByContextID(ctx context.Context, contextID string) (*domain.LtiContext, error) {
	var lc domain.LtiContext
	err := r.db.GetContext(ctx, &lc, `
        SELECT id, context_id
        FROM lti_contexts
        WHERE context_id = $1`, contextID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lti context: %w", err)
	}

	return &lc, nil
}
