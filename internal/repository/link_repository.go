package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linkhub/redirector/internal/model"
)

var ErrNotFound = errors.New("link not found")

// LinkRepository handles read access to short links. The redirect
// pipeline never mutates link records, so this repository is
// intentionally lookup-only.
type LinkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

// FindByCode retrieves a non-deleted link by its code. Soft-deleted
// rows are treated as absent and mapped to ErrNotFound.
func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "db.select",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "SELECT"),
			attribute.String("db.sql.table", "links"),
			attribute.String("code", code),
		),
	)
	defer span.End()

	query := `
		SELECT id, code, destination_url, status, redirect_type, expires_at, max_clicks, owner_id, created_at
		FROM links
		WHERE code = $1 AND deleted_at IS NULL
	`
	var link model.Link
	err := r.db.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.Code,
		&link.DestinationURL,
		&link.Status,
		&link.RedirectType,
		&link.ExpiresAt,
		&link.MaxClicks,
		&link.OwnerID,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return &link, nil
}
