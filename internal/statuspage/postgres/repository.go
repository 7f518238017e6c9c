// Package postgres provides a PostgreSQL implementation of the status page
// repository. Each organization is one row holding the document as JSONB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements statuspage.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureContainer implements statuspage.Repository in a single statement:
// insert the document with an empty container, or initialize the container
// on an existing row only when it is not already an object.
func (r *Repository) EnsureContainer(ctx context.Context, orgID string, container domain.Container) error {
	query := `
		INSERT INTO organizations (id, doc)
		VALUES ($1, jsonb_build_object($2::text, '{}'::jsonb))
		ON CONFLICT (id) DO UPDATE
			SET doc = jsonb_set(organizations.doc, ARRAY[$2::text], '{}'::jsonb),
			    updated_at = now()
			WHERE jsonb_typeof(organizations.doc -> $2::text) IS DISTINCT FROM 'object'
	`
	if _, err := r.db.Exec(ctx, query, orgID, string(container)); err != nil {
		return fmt.Errorf("ensure %s container: %w", container, err)
	}
	return nil
}

// GetOrganization implements statuspage.Repository.
func (r *Repository) GetOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	var doc statuspage.Document
	err := r.db.QueryRow(ctx, `SELECT doc FROM organizations WHERE id = $1`, orgID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, statuspage.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	if doc == nil {
		doc = statuspage.Document{}
	}
	return doc.Decode(orgID)
}

// Patch implements statuspage.Repository. The row is locked for the duration
// of the read-modify-write and timestamps use the transaction start time.
func (r *Repository) Patch(ctx context.Context, orgID string, p statuspage.Patch) error {
	if p.IsEmpty() {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		doc statuspage.Document
		now time.Time
	)
	err = tx.QueryRow(ctx, `SELECT doc, now() FROM organizations WHERE id = $1 FOR UPDATE`, orgID).Scan(&doc, &now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statuspage.ErrOrganizationNotFound
		}
		return fmt.Errorf("lock organization: %w", err)
	}
	if doc == nil {
		doc = statuspage.Document{}
	}

	doc.Apply(p, now.UTC())

	if _, err := tx.Exec(ctx, `UPDATE organizations SET doc = $2, updated_at = $3 WHERE id = $1`, orgID, doc, now); err != nil {
		return fmt.Errorf("update organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListOrganizationIDs implements statuspage.Repository.
func (r *Repository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan organizations: %w", err)
	}
	return ids, nil
}

// Ping implements statuspage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
