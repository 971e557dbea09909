package domain

import "context"

// PostilRepository defines persistence operations for postily.
type PostilRepository interface {
	// InsertPostils stores one batch atomically and returns the number of
	// rows inserted.
	InsertPostils(ctx context.Context, batch []Postil) (int, error)

	// FindOverlapping returns active postily whose biblical references share
	// at least one element with refs, ordered by postil number.
	FindOverlapping(ctx context.Context, refs []string) ([]Postil, error)

	// CountPostils returns the number of stored postily, active or not.
	CountPostils(ctx context.Context) (int64, error)

	// ListPostils returns all postily ordered by postil number.
	ListPostils(ctx context.Context) ([]Postil, error)

	// DeleteAllPostils removes every postil. Returns the number of rows deleted.
	DeleteAllPostils(ctx context.Context) (int64, error)

	// DeactivatePostil soft-deletes a postil. Returns ErrNotFound if no
	// postil has the given ID.
	DeactivatePostil(ctx context.Context, id string) error
}

// MatchCache stores match results keyed by the set of extracted references.
type MatchCache interface {
	// GetMatches returns cached matches for refs. The boolean is false on a miss.
	GetMatches(ctx context.Context, refs []string) ([]MatchResult, bool, error)

	// SetMatches caches matches for refs.
	SetMatches(ctx context.Context, refs []string, matches []MatchResult) error

	// Invalidate drops every cached entry. Called after the corpus changes.
	Invalidate(ctx context.Context) error
}
