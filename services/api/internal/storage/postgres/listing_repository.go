package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

type ListingRepository struct {
	conn
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{conn: conn{pool: pool}}
}

func (r *ListingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const listingColumns = `id, owner_id, title, description, price_cents, latitude, longitude,
	status, status_changed_at, expires_at, sold_at, created_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.PriceCents, &l.Latitude, &l.Longitude,
		&l.Status, &l.StatusChangedAt, &l.ExpiresAt, &l.SoldAt, &l.CreatedAt,
	)
	return l, err
}

func (r *ListingRepository) CreateListing(ctx context.Context, l domain.Listing) error {
	const stmt = `
INSERT INTO listings (id, owner_id, title, description, price_cents, latitude, longitude,
	status, status_changed_at, expires_at, sold_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.exec(ctx, stmt,
		l.ID, l.OwnerID, l.Title, l.Description, l.PriceCents, l.Latitude, l.Longitude,
		l.Status, l.StatusChangedAt, l.ExpiresAt, l.SoldAt, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (r *ListingRepository) ListByStatus(ctx context.Context, status domain.ListingStatus) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = $1 ORDER BY created_at, id`
	rows, err := r.query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list listings by status: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list listings by status: %w", err)
	}
	return out, nil
}

// CompareAndSetStatus applies update only while the listing is still in
// expected. Zero affected rows is a conflict unless the listing is gone.
func (r *ListingRepository) CompareAndSetStatus(ctx context.Context, id string, expected domain.ListingStatus, update domain.StatusUpdate) error {
	const stmt = `
UPDATE listings
SET status = $3,
	status_changed_at = $4,
	expires_at = CASE WHEN $7 THEN NULL ELSE COALESCE($5, expires_at) END,
	sold_at = COALESCE($6, sold_at)
WHERE id = $1 AND status = $2`

	tag, err := r.exec(ctx, stmt, id, expected, update.Status, update.StatusChangedAt,
		update.ExpiresAt, update.SoldAt, update.ClearExpiry)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("update listing status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check listing exists: %w", err)
	}
	if !exists {
		return domain.ErrListingNotFound
	}
	return domain.ErrConflict
}

func (r *ListingRepository) InsertHistory(ctx context.Context, rec domain.StatusHistoryRecord) error {
	const stmt = `
INSERT INTO listing_status_history (id, listing_id, previous_status, new_status, reason, notes, actor_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var notes *string
	if rec.Notes != "" {
		notes = &rec.Notes
	}
	_, err := r.exec(ctx, stmt,
		rec.ID, rec.ListingID, rec.PreviousStatus, rec.NewStatus, rec.Reason, notes, rec.ActorID, rec.OccurredAt,
	)
	if err != nil {
		if isInvalidUUID(err) || isForeignKeyViolation(err) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// ListHistory returns records most recent first. Records sharing a timestamp
// come back in reverse insertion order.
func (r *ListingRepository) ListHistory(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error) {
	const query = `
SELECT id, listing_id, previous_status, new_status, reason, notes, actor_id, occurred_at
FROM listing_status_history
WHERE listing_id = $1
ORDER BY occurred_at DESC, seq DESC`

	rows, err := r.query(ctx, query, listingID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusHistoryRecord
	for rows.Next() {
		var (
			rec   domain.StatusHistoryRecord
			notes *string
		)
		if err := rows.Scan(&rec.ID, &rec.ListingID, &rec.PreviousStatus, &rec.NewStatus,
			&rec.Reason, &notes, &rec.ActorID, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		if notes != nil {
			rec.Notes = *notes
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return out, nil
}

func (r *ListingRepository) ListExpiryDue(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id
FROM listings
WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
ORDER BY expires_at, id`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expiry due: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list expiry due: %w", err)
	}
	return ids, nil
}
