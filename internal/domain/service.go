package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/blackmichael/postily/internal/bibleref"
)

// DefaultBatchSize is the number of postily sent to the repository per insert.
const DefaultBatchSize = 20

// PostilService is the core domain service. It owns ingestion of segmented
// postily and matching them against the current lectionary readings.
type PostilService struct {
	repo      PostilRepository
	cache     MatchCache // nil disables caching
	extractor *bibleref.Extractor
	batchSize int
	logger    *slog.Logger
}

// ServiceOption configures a PostilService.
type ServiceOption func(*PostilService)

// WithMatchCache enables caching of match results.
func WithMatchCache(c MatchCache) ServiceOption {
	return func(s *PostilService) { s.cache = c }
}

// WithExtractor replaces the default reference extractor.
func WithExtractor(e *bibleref.Extractor) ServiceOption {
	return func(s *PostilService) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithBatchSize sets the import batch size. Non-positive values are ignored.
func WithBatchSize(n int) ServiceOption {
	return func(s *PostilService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewPostilService creates a PostilService backed by repo.
func NewPostilService(repo PostilRepository, logger *slog.Logger, opts ...ServiceOption) *PostilService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostilService{
		repo:      repo,
		extractor: bibleref.DefaultExtractor,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import stores postily in batches. A failed batch is recorded in the report
// and the remaining batches are still attempted. IDs are assigned to postily
// that have none and every imported postil is active.
func (s *PostilService) Import(ctx context.Context, postils []Postil) (*ImportReport, error) {
	if len(postils) == 0 {
		return nil, fmt.Errorf("%w: postily array required", ErrInvalidInput)
	}

	report := &ImportReport{TotalSent: len(postils)}
	for start := 0; start < len(postils); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(start+s.batchSize, len(postils))
		batch := make([]Postil, end-start)
		for i, p := range postils[start:end] {
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			if p.BiblicalReferences == nil {
				p.BiblicalReferences = []string{}
			}
			p.IsActive = true
			batch[i] = p
		}

		n, err := s.repo.InsertPostils(ctx, batch)
		if err != nil {
			batchNo := start/s.batchSize + 1
			s.logger.Error("import batch failed", "batch", batchNo, "size", len(batch), "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("batch %d: %v", batchNo, err))
			continue
		}
		report.Inserted += n
		s.logger.Debug("import batch stored", "from", start, "to", end, "inserted", n)
	}

	s.logger.Info("import complete", "inserted", report.Inserted, "total_sent", report.TotalSent, "failed_batches", len(report.Errors))
	s.invalidate(ctx)
	return report, nil
}

// FindMatches extracts the readings from a lectionary page and returns every
// active postil whose references overlap them. A page with no recognizable
// references yields an empty result, not an error. Repository failures are
// returned as *RepositoryError.
func (s *PostilService) FindMatches(ctx context.Context, markdown string) ([]MatchResult, error) {
	readings := s.extractor.FromMarkdown(markdown)
	for _, r := range readings.Readings {
		s.logger.Debug("lectionary reading", "heading", r.Heading, "type", r.Type, "refs", r.Refs)
	}
	if len(readings.All) == 0 {
		s.logger.Info("no biblical references found in readings", "headings", len(readings.Readings))
		return []MatchResult{}, nil
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetMatches(ctx, readings.All)
		if err != nil {
			s.logger.Warn("match cache lookup failed", "error", err)
		} else if ok {
			s.logger.Debug("match cache hit", "refs", readings.All, "matches", len(cached))
			return cached, nil
		}
	}

	postils, err := s.repo.FindOverlapping(ctx, readings.All)
	if err != nil {
		s.logger.Error("overlap query failed", "refs", readings.All, "error", err)
		return nil, &RepositoryError{Op: "find overlapping postily", Err: err}
	}

	wanted := make(map[string]struct{}, len(readings.All))
	for _, r := range readings.All {
		wanted[r] = struct{}{}
	}

	matches := make([]MatchResult, 0, len(postils))
	for _, p := range postils {
		matched := readings.All[0]
		for _, r := range p.BiblicalReferences {
			if _, ok := wanted[r]; ok {
				matched = r
				break
			}
		}
		matches = append(matches, MatchResult{Postil: p, MatchedRef: matched})
	}
	s.logger.Info("matched postily", "refs", readings.All, "matches", len(matches))

	if s.cache != nil {
		if err := s.cache.SetMatches(ctx, readings.All, matches); err != nil {
			s.logger.Warn("match cache store failed", "error", err)
		}
	}
	return matches, nil
}

// Count returns the number of stored postily.
func (s *PostilService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.CountPostils(ctx)
	if err != nil {
		return 0, &RepositoryError{Op: "count postily", Err: err}
	}
	return n, nil
}

// List returns every stored postil ordered by number.
func (s *PostilService) List(ctx context.Context) ([]Postil, error) {
	postils, err := s.repo.ListPostils(ctx)
	if err != nil {
		return nil, &RepositoryError{Op: "list postily", Err: err}
	}
	return postils, nil
}

// DeleteAll removes every stored postil.
func (s *PostilService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAllPostils(ctx)
	if err != nil {
		return 0, &RepositoryError{Op: "delete postily", Err: err}
	}
	s.logger.Info("deleted all postily", "deleted", n)
	s.invalidate(ctx)
	return n, nil
}

// Deactivate hides a postil from matching without deleting it.
func (s *PostilService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: postil id required", ErrInvalidInput)
	}
	if err := s.repo.DeactivatePostil(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("postil %s: %w", id, err)
		}
		return &RepositoryError{Op: "deactivate postil", Err: err}
	}
	s.logger.Info("deactivated postil", "id", id)
	s.invalidate(ctx)
	return nil
}

func (s *PostilService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("match cache invalidation failed", "error", err)
	}
}
