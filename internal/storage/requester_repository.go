package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/console-zone/rental/internal/storage/models"
)

// RequesterRepository provides data access for locally held identity records.
type RequesterRepository struct {
	BaseRepository
}

// NewRequesterRepository creates a requester repository over q.
func NewRequesterRepository(q Queryable) *RequesterRepository {
	return &RequesterRepository{
		BaseRepository: NewBaseRepository(q),
	}
}

// GetByID retrieves a requester by user ID.
func (r *RequesterRepository) GetByID(ctx context.Context, id string) (*models.Requester, error) {
	req := &models.Requester{}
	err := r.q.QueryRowContext(ctx, `
		SELECT id, kyc_status, blocked FROM requesters WHERE id = ?
	`, id).Scan(&req.ID, &req.KYCStatus, &req.Blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying requester: %w", err)
	}
	return req, nil
}

// Upsert creates or replaces a requester record.
func (r *RequesterRepository) Upsert(ctx context.Context, req *models.Requester) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO requesters (id, kyc_status, blocked, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kyc_status = excluded.kyc_status, blocked = excluded.blocked, updated_at = excluded.updated_at
	`, req.ID, req.KYCStatus, req.Blocked, r.Now())
	if err != nil {
		return fmt.Errorf("upserting requester: %w", err)
	}
	return nil
}
