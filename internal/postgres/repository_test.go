package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/blackmichael/postily/internal/domain"
)

// These tests run against a live database named by POSTILY_TEST_DATABASE_URL
// and are skipped otherwise. The postily table is truncated.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("POSTILY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POSTILY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := NewRepository(ctx, url)
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := repo.DeleteAllPostils(ctx); err != nil {
		t.Fatalf("DeleteAllPostils failed: %v", err)
	}
	return repo
}

func TestRepositoryOverlap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a, b := uuid.NewString(), uuid.NewString()
	_, err := repo.InsertPostils(ctx, []domain.Postil{
		{ID: b, PostilNumber: 2, BiblicalReferences: []string{"Lk 2,1-14"}, Year: 1921, IssueNumber: 6, IsActive: true},
		{ID: a, PostilNumber: 1, BiblicalReferences: []string{"Mt 4,1-11", "1Sol 4,1-7"}, Year: 1921, IssueNumber: 5, IsActive: true},
	})
	if err != nil {
		t.Fatalf("InsertPostils failed: %v", err)
	}

	got, err := repo.FindOverlapping(ctx, []string{"Gn 2,7-9", "Mt 4,1-11"})
	if err != nil {
		t.Fatalf("FindOverlapping failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != a || len(got[0].BiblicalReferences) != 2 {
		t.Fatalf("got %+v, want postil %s", got, a)
	}

	if err := repo.DeactivatePostil(ctx, a); err != nil {
		t.Fatalf("DeactivatePostil failed: %v", err)
	}
	got, err = repo.FindOverlapping(ctx, []string{"Mt 4,1-11"})
	if err != nil || len(got) != 0 {
		t.Errorf("deactivated postil matched: %+v, %v", got, err)
	}
}

func TestDeactivateUnknownID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		if err := repo.DeactivatePostil(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("DeactivatePostil(%q) = %v, want ErrNotFound", id, err)
		}
	}
}
