package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"muxlti/internal/domain"
)

type AssetRepository struct {
	db *sqlx.DB
}

func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `a.id, a.mux_id, a.lti_context_id, c.context_id`

// ListVisible возвращает ассеты, чей context_id подходит под регулярное выражение
// pattern (синтаксис POSIX Postgres). Пустой pattern - без ограничений.
// Новые ассеты идут первыми.
func (r *AssetRepository) ListVisible(ctx context.Context, pattern string) ([]domain.Asset, error) {
	query := `
        SELECT ` + assetColumns + `
        FROM assets a
        JOIN lti_contexts c ON c.id = a.lti_context_id`
	args := []interface{}{}
	if pattern != "" {
		query += ` WHERE c.context_id ~ $1`
		args = append(args, pattern)
	}
	query += ` ORDER BY a.id DESC`

	assets := []domain.Asset{}
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	return assets, nil
}

// GetVisible находит ассет по mux_id среди видимых для pattern.
func (r *AssetRepository) GetVisible(ctx context.Context, pattern, muxID string) (*domain.Asset, error) {
	query := `
        SELECT ` + assetColumns + `
        FROM assets a
        JOIN lti_contexts c ON c.id = a.lti_context_id
        WHERE a.mux_id = $1`
	args := []interface{}{muxID}
	if pattern != "" {
		query += ` AND c.context_id ~ $2`
		args = append(args, pattern)
	}

	var asset domain.Asset
	if err := r.db.GetContext(ctx, &asset, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return &asset, nil
}

// Delete удаляет локальную запись ассета.
func (r *AssetRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}
