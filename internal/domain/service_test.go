package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
)

type fakeRepo struct {
	postils  []Postil
	failOn   map[int]bool // batch call index (1-based) that fails
	calls    int
	queryErr error
}

func (r *fakeRepo) InsertPostils(_ context.Context, batch []Postil) (int, error) {
	r.calls++
	if r.failOn[r.calls] {
		return 0, errors.New("constraint violation")
	}
	r.postils = append(r.postils, batch...)
	return len(batch), nil
}

func (r *fakeRepo) FindOverlapping(_ context.Context, refs []string) ([]Postil, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	want := make(map[string]bool, len(refs))
	for _, ref := range refs {
		want[ref] = true
	}
	var out []Postil
	for _, p := range r.postils {
		if !p.IsActive {
			continue
		}
		for _, ref := range p.BiblicalReferences {
			if want[ref] {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostilNumber < out[j].PostilNumber })
	return out, nil
}

func (r *fakeRepo) CountPostils(context.Context) (int64, error) {
	if r.queryErr != nil {
		return 0, r.queryErr
	}
	return int64(len(r.postils)), nil
}

func (r *fakeRepo) ListPostils(context.Context) ([]Postil, error) {
	return r.postils, r.queryErr
}

func (r *fakeRepo) DeleteAllPostils(context.Context) (int64, error) {
	n := int64(len(r.postils))
	r.postils = nil
	return n, nil
}

func (r *fakeRepo) DeactivatePostil(_ context.Context, id string) error {
	for i := range r.postils {
		if r.postils[i].ID == id {
			r.postils[i].IsActive = false
			return nil
		}
	}
	return ErrNotFound
}

type fakeCache struct {
	entries     map[string][]MatchResult
	invalidated int
}

func (c *fakeCache) GetMatches(_ context.Context, refs []string) ([]MatchResult, bool, error) {
	m, ok := c.entries[strings.Join(refs, "|")]
	return m, ok, nil
}

func (c *fakeCache) SetMatches(_ context.Context, refs []string, matches []MatchResult) error {
	if c.entries == nil {
		c.entries = make(map[string][]MatchResult)
	}
	c.entries[strings.Join(refs, "|")] = matches
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.entries = nil
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const lentReadings = `# 1. neděle postní

## První čtení z Písma: Gn 2,7-9; 3,1-7

## Druhé čtení: Ř 5,12-19

## Evangelium – Mt 4,1-11
`

func TestFindMatches(t *testing.T) {
	repo := &fakeRepo{postils: []Postil{
		{ID: "a", PostilNumber: 1, BiblicalReferences: []string{"Mt 4,1-11"}, IsActive: true},
		{ID: "b", PostilNumber: 2, BiblicalReferences: []string{"Lk 2,1-14"}, IsActive: true},
		{ID: "c", PostilNumber: 3, BiblicalReferences: []string{"J 3,16", "Ř 5,12-19"}, IsActive: true},
		{ID: "d", PostilNumber: 4, BiblicalReferences: []string{"Mt 4,1-11"}, IsActive: false},
	}}
	svc := NewPostilService(repo, discardLogger())

	got, err := svc.FindMatches(context.Background(), lentReadings)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].ID != "a" || got[0].MatchedRef != "Mt 4,1-11" {
		t.Errorf("first match = %s/%s, want a/Mt 4,1-11", got[0].ID, got[0].MatchedRef)
	}
	if got[1].ID != "c" || got[1].MatchedRef != "Ř 5,12-19" {
		t.Errorf("second match = %s/%s, want c/Ř 5,12-19", got[1].ID, got[1].MatchedRef)
	}
}

func TestFindMatchesWithoutHeadings(t *testing.T) {
	svc := NewPostilService(&fakeRepo{queryErr: errors.New("must not be called")}, discardLogger())

	got, err := svc.FindMatches(context.Background(), "Dnes žádná čtení.")
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %+v, want empty non-nil slice", got)
	}
}

func TestFindMatchesRepositoryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	svc := NewPostilService(&fakeRepo{queryErr: dbErr}, discardLogger())

	_, err := svc.FindMatches(context.Background(), lentReadings)
	if !errors.Is(err, ErrRepository) {
		t.Errorf("errors.Is(err, ErrRepository) = false for %v", err)
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("underlying error not wrapped: %v", err)
	}
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) || repoErr.Op == "" {
		t.Errorf("expected *RepositoryError with Op, got %T", err)
	}
}

func TestFindMatchesUsesCache(t *testing.T) {
	repo := &fakeRepo{postils: []Postil{
		{ID: "a", PostilNumber: 1, BiblicalReferences: []string{"Mt 4,1-11"}, IsActive: true},
	}}
	cache := &fakeCache{}
	svc := NewPostilService(repo, discardLogger(), WithMatchCache(cache))
	ctx := context.Background()

	if _, err := svc.FindMatches(ctx, lentReadings); err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(cache.entries))
	}

	// A failing repository proves the second call is served from cache.
	repo.queryErr = errors.New("unreachable")
	got, err := svc.FindMatches(ctx, lentReadings)
	if err != nil {
		t.Fatalf("cached FindMatches failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("cached result = %+v", got)
	}
}

func TestImportBatches(t *testing.T) {
	repo := &fakeRepo{failOn: map[int]bool{2: true}}
	cache := &fakeCache{}
	svc := NewPostilService(repo, discardLogger(), WithBatchSize(2), WithMatchCache(cache))

	postils := make([]Postil, 5)
	for i := range postils {
		postils[i] = Postil{PostilNumber: i + 1}
	}
	report, err := svc.Import(context.Background(), postils)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if report.TotalSent != 5 || report.Inserted != 3 {
		t.Errorf("report = %+v, want 3 of 5 inserted", report)
	}
	if len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0], "batch 2:") {
		t.Errorf("Errors = %q", report.Errors)
	}
	if report.Success() {
		t.Error("Success() = true with a failed batch")
	}
	if repo.calls != 3 {
		t.Errorf("InsertPostils called %d times, want 3", repo.calls)
	}
	if cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.invalidated)
	}

	for _, p := range repo.postils {
		if p.ID == "" || !p.IsActive || p.BiblicalReferences == nil {
			t.Errorf("stored postil not prepared: %+v", p)
		}
	}
}

func TestImportEmpty(t *testing.T) {
	svc := NewPostilService(&fakeRepo{}, discardLogger())
	if _, err := svc.Import(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Import(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestImportKeepsExistingID(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewPostilService(repo, discardLogger())

	if _, err := svc.Import(context.Background(), []Postil{{ID: "fixed"}}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if repo.postils[0].ID != "fixed" {
		t.Errorf("ID = %q, want %q", repo.postils[0].ID, "fixed")
	}
}

func TestDeactivate(t *testing.T) {
	repo := &fakeRepo{postils: []Postil{{ID: "a", IsActive: true}}}
	svc := NewPostilService(repo, discardLogger())
	ctx := context.Background()

	if err := svc.Deactivate(ctx, "a"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if repo.postils[0].IsActive {
		t.Error("postil still active")
	}
	if err := svc.Deactivate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deactivate(missing) = %v, want ErrNotFound", err)
	}
	if err := svc.Deactivate(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Deactivate(\"\") = %v, want ErrInvalidInput", err)
	}
}

func TestCountAndDeleteAll(t *testing.T) {
	repo := &fakeRepo{postils: []Postil{{ID: "a"}, {ID: "b"}}}
	svc := NewPostilService(repo, discardLogger())
	ctx := context.Background()

	n, err := svc.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v; want 2", n, err)
	}
	deleted, err := svc.DeleteAll(ctx)
	if err != nil || deleted != 2 {
		t.Fatalf("DeleteAll = %d, %v; want 2", deleted, err)
	}
	if n, _ := svc.Count(ctx); n != 0 {
		t.Errorf("Count after DeleteAll = %d", n)
	}
}
