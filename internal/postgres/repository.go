package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/blackmichael/postily/internal/domain"
)

//go:embed schema.sql
var schema string

const selectColumns = `
	SELECT id::text, postil_number, title, biblical_references,
	       COALESCE(biblical_refs_raw, ''), COALESCE(liturgical_context, ''),
	       year, issue_number, source_ref, COALESCE(biblical_text, ''), content, is_active
	FROM postily`

var _ domain.PostilRepository = (*Repository)(nil)

// Repository implements domain.PostilRepository using PostgreSQL. References
// are stored as a text[] column with a GIN index so overlap queries use &&.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, and returns a new Repository. The caller should call Close
// when the repository is no longer needed.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate creates the postily table and its indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// InsertPostils inserts one batch in a single transaction.
func (r *Repository) InsertPostils(ctx context.Context, batch []domain.Postil) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postily (
			id, postil_number, title, biblical_references, biblical_refs_raw,
			liturgical_context, year, issue_number, source_ref, biblical_text,
			content, is_active
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''), $11, $12)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range batch {
		refs := p.BiblicalReferences
		if refs == nil {
			refs = []string{}
		}
		_, err := stmt.ExecContext(ctx,
			p.ID,
			p.PostilNumber,
			p.Title,
			refs,
			p.BiblicalRefsRaw,
			p.LiturgicalContext,
			p.Year,
			p.IssueNumber,
			p.SourceRef,
			p.BiblicalText,
			p.Content,
			p.IsActive,
		)
		if err != nil {
			return 0, fmt.Errorf("insert postil %d (%s): %w", p.PostilNumber, p.SourceRef, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(batch), nil
}

// FindOverlapping returns active postily sharing at least one reference with refs.
func (r *Repository) FindOverlapping(ctx context.Context, refs []string) ([]domain.Postil, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE is_active AND biblical_references && $1::text[] ORDER BY postil_number`,
		refs,
	)
	if err != nil {
		return nil, fmt.Errorf("query overlapping postily (refs=%v): %w", refs, err)
	}
	return scanPostils(rows)
}

// CountPostils returns the total number of rows.
func (r *Repository) CountPostils(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM postily`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count postily: %w", err)
	}
	return n, nil
}

// ListPostils returns every postil ordered by number.
func (r *Repository) ListPostils(ctx context.Context) ([]domain.Postil, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY postil_number, year, issue_number`)
	if err != nil {
		return nil, fmt.Errorf("query postily: %w", err)
	}
	return scanPostils(rows)
}

// DeleteAllPostils removes every row.
func (r *Repository) DeleteAllPostils(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM postily`)
	if err != nil {
		return 0, fmt.Errorf("delete postily: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeactivatePostil clears is_active. IDs that are not UUIDs cannot exist and
// are reported as not found.
func (r *Repository) DeactivatePostil(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE postily SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate postil: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanPostils decodes rows from selectColumns. The text[] column is decoded
// through a pgtype.Map, which is not safe for concurrent use, so each call
// gets its own.
func scanPostils(rows *sql.Rows) ([]domain.Postil, error) {
	defer rows.Close()

	types := pgtype.NewMap()
	postils := []domain.Postil{}
	for rows.Next() {
		var p domain.Postil
		err := rows.Scan(
			&p.ID,
			&p.PostilNumber,
			&p.Title,
			types.SQLScanner(&p.BiblicalReferences),
			&p.BiblicalRefsRaw,
			&p.LiturgicalContext,
			&p.Year,
			&p.IssueNumber,
			&p.SourceRef,
			&p.BiblicalText,
			&p.Content,
			&p.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("scan postil: %w", err)
		}
		if p.BiblicalReferences == nil {
			p.BiblicalReferences = []string{}
		}
		postils = append(postils, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postily: %w", err)
	}
	return postils, nil
}
