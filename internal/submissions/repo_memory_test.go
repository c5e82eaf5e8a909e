package submissions

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedMemoryRepo(t *testing.T, subs ...Submission) *MemoryRepo {
	t.Helper()
	repo := NewMemoryRepo()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	repo.Now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}
	for _, s := range subs {
		if _, err := repo.Insert(context.Background(), s); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return repo
}

func TestMemoryRepoInsertForcesPending(t *testing.T) {
	repo := seedMemoryRepo(t)
	now := time.Now()
	got, err := repo.Insert(context.Background(), Submission{
		Title:      "T",
		Visibility: VisibilityPublic,
		ReviewedAt: &now,
		ReviewedBy: "someone",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.ID == 0 || got.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned: %+v", got)
	}
	if got.Visibility != VisibilityPending || got.ReviewedAt != nil || got.ReviewedBy != "" {
		t.Fatalf("expected fresh pending record, got %+v", got)
	}
}

func TestMemoryRepoQueryOrdersNewestFirstAndPages(t *testing.T) {
	repo := seedMemoryRepo(t,
		Submission{Title: "first"},
		Submission{Title: "second"},
		Submission{Title: "third"},
	)

	page, total, err := repo.Query(context.Background(), Filter{}, Page{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 2 || page[0].Title != "third" || page[1].Title != "second" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page, _, err = repo.Query(context.Background(), Filter{}, Page{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 1 || page[0].Title != "first" {
		t.Fatalf("unexpected second page: %+v", page)
	}

	page, _, err = repo.Query(context.Background(), Filter{}, Page{Offset: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page))
	}
}

func TestMemoryRepoQueryFilters(t *testing.T) {
	repo := seedMemoryRepo(t,
		Submission{Title: "Graph Networks", SubmitterName: "Ada", SubmitterEmail: "ada@example.com", Tags: []string{"ml", "graphs"}},
		Submission{Title: "Compilers", SubmitterName: "Grace", SubmitterEmail: "grace@example.com", FinalAbstract: "about graph coloring", Tags: []string{"pl"}},
	)
	ctx := context.Background()

	got, total, err := repo.Query(ctx, Filter{Search: "GRACE@"}, Page{})
	if err != nil || total != 1 || got[0].Title != "Compilers" {
		t.Fatalf("submitter search: total=%d err=%v got=%+v", total, err, got)
	}

	_, total, err = repo.Query(ctx, Filter{Search: "coloring"}, Page{})
	if err != nil || total != 0 {
		t.Fatalf("submitter scope should not search abstracts: total=%d err=%v", total, err)
	}

	_, total, err = repo.Query(ctx, Filter{Search: "graph", Scope: SearchContent}, Page{})
	if err != nil || total != 2 {
		t.Fatalf("content search: total=%d err=%v", total, err)
	}

	_, total, err = repo.Query(ctx, Filter{Tag: "graph"}, Page{})
	if err != nil || total != 0 {
		t.Fatalf("tag must match exactly: total=%d err=%v", total, err)
	}

	got, total, err = repo.Query(ctx, Filter{Tag: "graphs"}, Page{})
	if err != nil || total != 1 || got[0].SubmitterName != "Ada" {
		t.Fatalf("tag filter: total=%d err=%v got=%+v", total, err, got)
	}
}

func TestMemoryRepoUpdateVisibilitySkipsMissingAndDuplicates(t *testing.T) {
	repo := seedMemoryRepo(t, Submission{Title: "a"}, Submission{Title: "b"})
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	n, err := repo.UpdateVisibility(context.Background(), []int64{1, 2, 3, 2}, VisibilityPublic, Reviewer{Email: "r@example.com"}, at)
	if err != nil {
		t.Fatalf("UpdateVisibility: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}

	s, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s.Visibility != VisibilityPublic || s.ReviewedBy != "r@example.com" || s.ReviewedAt == nil || !s.ReviewedAt.Equal(at) {
		t.Fatalf("unexpected reviewed record: %+v", s)
	}
}

func TestMemoryRepoSetVisibilityAndDeleteMissing(t *testing.T) {
	repo := seedMemoryRepo(t)
	ctx := context.Background()

	if _, err := repo.SetVisibility(ctx, 42, VisibilityPrivate, Reviewer{Email: "r@example.com"}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.SetVisibility(ctx, 42, Visibility("archived"), Reviewer{}, time.Now()); !errors.Is(err, ErrInvalidVisibility) {
		t.Fatalf("expected ErrInvalidVisibility, got %v", err)
	}
	if err := repo.Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoCountAndKeyReferenced(t *testing.T) {
	repo := seedMemoryRepo(t,
		Submission{Title: "a", FileKey: "documents/a.pdf"},
		Submission{Title: "b"},
		Submission{Title: "c"},
	)
	ctx := context.Background()
	if _, err := repo.SetVisibility(ctx, 2, VisibilityPublic, Reviewer{Email: "r@example.com"}, time.Now()); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}

	st, err := repo.CountByVisibility(ctx)
	if err != nil {
		t.Fatalf("CountByVisibility: %v", err)
	}
	if st != (Stats{Pending: 2, Public: 1, Total: 3}) {
		t.Fatalf("unexpected stats %+v", st)
	}

	ok, err := repo.KeyReferenced(ctx, "documents/a.pdf")
	if err != nil || !ok {
		t.Fatalf("expected key to be referenced: ok=%v err=%v", ok, err)
	}
	if err := repo.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = repo.KeyReferenced(ctx, "documents/a.pdf")
	if err != nil || ok {
		t.Fatalf("expected key to be unreferenced after delete: ok=%v err=%v", ok, err)
	}
}
