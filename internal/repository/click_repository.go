package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linkhub/redirector/internal/model"
)

// ClickRepository handles the append-only clicks table. The redirect
// pipeline inserts and counts clicks; it never updates or deletes them.
type ClickRepository struct {
	db *pgxpool.Pool
}

// NewClickRepository creates a new click repository
func NewClickRepository(db *pgxpool.Pool) *ClickRepository {
	return &ClickRepository{db: db}
}

// Insert persists one click event.
func (r *ClickRepository) Insert(ctx context.Context, click *model.Click) error {
	ctx, span := tracer.Start(ctx, "db.insert",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.sql.table", "clicks"),
		),
	)
	defer span.End()

	query := `
		INSERT INTO clicks (id, link_id, ip_hash, device, os, browser, referrer, country, city, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		click.ID,
		click.LinkID,
		click.IPHash,
		click.Device,
		click.OS,
		click.Browser,
		click.Referrer,
		click.Country,
		click.City,
		click.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// CountByLink returns the total number of clicks recorded for a link.
// The click-cap gate derives the count from this table instead of a
// counter column on the link row.
func (r *ClickRepository) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "clicks"),
		),
	)
	defer span.End()

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE link_id = $1`, linkID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return count, nil
}

// HasRecent reports whether a click for the same link and hashed IP
// exists at or after the given instant. This is a plain read; the
// caller's check-then-insert is deliberately not atomic.
func (r *ClickRepository) HasRecent(ctx context.Context, linkID uuid.UUID, ipHash string, since time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "clicks"),
		),
	)
	defer span.End()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM clicks
			WHERE link_id = $1 AND ip_hash = $2 AND created_at >= $3
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, linkID, ipHash, since).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return exists, nil
}
