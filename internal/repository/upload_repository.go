package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"muxlti/internal/domain"
)

type UploadRepository struct {
	db *sqlx.DB
}

func NewUploadRepository(db *sqlx.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error) {
	ticket := domain.UploadTicket{
		MuxID:        muxID,
		LtiContextID: ltiContextID,
		Status:       domain.UploadStatusWaiting,
	}
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO upload_urls (mux_id, lti_context_id, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`,
		ticket.MuxID, ticket.LtiContextID, ticket.Status).Scan(&ticket.ID, &ticket.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload url: %w", err)
	}

	return &ticket, nil
}

// Get ищет тикет по mux_id в рамках LTI-контекста.
func (r *UploadRepository) Get(ctx context.Context, muxID string, ltiContextID int64) (*domain.UploadTicket, error) {
	return r.getOne(ctx, `
        SELECT id, mux_id, lti_context_id, status, created_at
        FROM upload_urls
        WHERE mux_id = $1 AND lti_context_id = $2`, muxID, ltiContextID)
}

func (r *UploadRepository) GetWaiting(ctx context.Context, muxID string) (*domain.UploadTicket, error) {
	return r.getOne(ctx, `
        SELECT id, mux_id, lti_context_id, status, created_at
        FROM upload_urls
        WHERE mux_id = $1 AND status = $2`, muxID, domain.UploadStatusWaiting)
}

func (r *UploadRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.UploadTicket, error) {
	var ticket domain.UploadTicket
	if err := r.db.GetContext(ctx, &ticket, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get upload url: %w", err)
	}
	return &ticket, nil
}

func (r *UploadRepository) ListByStatus(ctx context.Context, status domain.UploadStatus) ([]domain.UploadTicket, error) {
	tickets := []domain.UploadTicket{}
	err := r.db.SelectContext(ctx, &tickets, `
        SELECT id, mux_id, lti_context_id, status, created_at
        FROM upload_urls
        WHERE status = $1
        ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload urls: %w", err)
	}
	return tickets, nil
}

// CompleteUpload в одной транзакции создает ассет (если его еще нет)
// и переводит тикет в статус asset_created. Возвращает true, если ассет создан.
func (r *UploadRepository) CompleteUpload(ctx context.Context, ticket *domain.UploadTicket, assetMuxID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT INTO assets (mux_id, lti_context_id)
        VALUES ($1, $2)
        ON CONFLICT (mux_id) DO NOTHING`, assetMuxID, ticket.LtiContextID)
	if err != nil {
		return false, fmt.Errorf("failed to create asset: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE upload_urls
        SET status = $1
        WHERE id = $2`, domain.UploadStatusCreated, ticket.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update upload url status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ticket.Status = domain.UploadStatusCreated
	return inserted > 0, nil
}

// DeleteCreatedBefore удаляет тикеты, созданные не позже cutoff, независимо от статуса.
func (r *UploadRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM upload_urls WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired upload urls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
