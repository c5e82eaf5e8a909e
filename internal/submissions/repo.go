package submissions

import (
	"context"
	"time"
)

// SearchScope selects which columns a search term matches.
type SearchScope int

const (
	// SearchSubmitter matches title, submitter name and submitter email.
	SearchSubmitter SearchScope = iota
	// SearchContent matches title, both abstracts and submitter name.
	SearchContent
)

// Filter narrows a query. Zero values mean "no constraint".
type Filter struct {
	Visibility Visibility
	Search     string
	Scope      SearchScope
	Tag        string
}

// Page bounds a query. Limit 0 returns every matching row.
type Page struct {
	Limit  int
	Offset int
}

// Reviewer identifies who performed a moderation action.
type Reviewer struct {
	Email string
	Name  string
}

// Repo persists submissions. Query results are always ordered newest first.
type Repo interface {
	Insert(ctx context.Context, s Submission) (Submission, error)
	Query(ctx context.Context, f Filter, p Page) ([]Submission, int, error)
	GetByID(ctx context.Context, id int64) (Submission, error)
	SetVisibility(ctx context.Context, id int64, v Visibility, by Reviewer, at time.Time) (Submission, error)
	UpdateVisibility(ctx context.Context, ids []int64, v Visibility, by Reviewer, at time.Time) (int, error)
	Delete(ctx context.Context, id int64) error
	CountByVisibility(ctx context.Context) (Stats, error)
	KeyReferenced(ctx context.Context, key string) (bool, error)
}
