package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewerRepository resolves the reviewer privilege from the reviewers table.
type ReviewerRepository struct {
	conn
}

func NewReviewerRepository(pool *pgxpool.Pool) *ReviewerRepository {
	return &ReviewerRepository{conn: conn{pool: pool}}
}

func (r *ReviewerRepository) IsReviewer(ctx context.Context, actorID string) (bool, error) {
	var ok bool
	err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviewers WHERE actor_id = $1)`, actorID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check reviewer: %w", err)
	}
	return ok, nil
}

func (r *ReviewerRepository) AddReviewer(ctx context.Context, actorID string) error {
	_, err := r.exec(ctx, `INSERT INTO reviewers (actor_id) VALUES ($1) ON CONFLICT DO NOTHING`, actorID)
	if err != nil {
		return fmt.Errorf("add reviewer: %w", err)
	}
	return nil
}

func (r *ReviewerRepository) RemoveReviewer(ctx context.Context, actorID string) error {
	_, err := r.exec(ctx, `DELETE FROM reviewers WHERE actor_id = $1`, actorID)
	if err != nil {
		return fmt.Errorf("remove reviewer: %w", err)
	}
	return nil
}
