// Package sqlite implements the postil repository on an embedded SQLite
// database. References are stored as a JSON array and overlap is evaluated
// with json_each.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/blackmichael/postily/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS postily (
    id                  TEXT PRIMARY KEY,
    postil_number       INTEGER NOT NULL DEFAULT 0,
    title               TEXT NOT NULL DEFAULT '',
    biblical_references TEXT NOT NULL DEFAULT '[]',
    biblical_refs_raw   TEXT NOT NULL DEFAULT '',
    liturgical_context  TEXT NOT NULL DEFAULT '',
    year                INTEGER NOT NULL,
    issue_number        INTEGER NOT NULL,
    source_ref          TEXT NOT NULL DEFAULT '',
    biblical_text       TEXT NOT NULL DEFAULT '',
    content             TEXT NOT NULL DEFAULT '',
    is_active           INTEGER NOT NULL DEFAULT 1,
    created_at          TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS postily_number_idx ON postily (postil_number);
`

const selectColumns = `
	SELECT id, postil_number, title, biblical_references, biblical_refs_raw,
	       liturgical_context, year, issue_number, source_ref, biblical_text,
	       content, is_active
	FROM postily`

var _ domain.PostilRepository = (*Repository)(nil)

// Repository implements domain.PostilRepository using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database at path (":memory:" for a private
// in-memory database) and applies the schema.
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer and each :memory: connection is a
	// separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range batch {
		refs, err := encodeRefs(p.BiblicalReferences)
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx,
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
	wanted, err := encodeRefs(refs)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		WHERE is_active = 1 AND EXISTS (
			SELECT 1 FROM json_each(postily.biblical_references) AS ref
			WHERE ref.value IN (SELECT value FROM json_each(?))
		)
		ORDER BY postil_number`,
		wanted,
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

// DeactivatePostil clears is_active.
func (r *Repository) DeactivatePostil(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE postily SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate postil: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func encodeRefs(refs []string) (string, error) {
	if refs == nil {
		refs = []string{}
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode references: %w", err)
	}
	return string(b), nil
}

func scanPostils(rows *sql.Rows) ([]domain.Postil, error) {
	defer rows.Close()

	postils := []domain.Postil{}
	for rows.Next() {
		var (
			p    domain.Postil
			refs string
		)
		err := rows.Scan(
			&p.ID,
			&p.PostilNumber,
			&p.Title,
			&refs,
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
		if err := json.Unmarshal([]byte(refs), &p.BiblicalReferences); err != nil {
			return nil, fmt.Errorf("decode references of postil %s: %w", p.ID, err)
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
