package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docshare-backend/internal/shared/metrics"
	"docshare-backend/internal/shared/storage/object"
	"docshare-backend/internal/shared/telemetry"
	"docshare-backend/internal/submissions"
)

const (
	// ReviewerLinkTTL bounds preview links issued to reviewers.
	ReviewerLinkTTL = 15 * time.Minute
	// PublicLinkTTL bounds preview links issued for public records.
	PublicLinkTTL = time.Hour
)

var (
	// ErrNotFound covers missing records and records the requester may not preview.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a malformed bulk request.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Requester is who asks for a preview link.
type Requester int

const (
	RequesterPublic Requester = iota
	RequesterReviewer
)

func (r Requester) String() string {
	if r == RequesterReviewer {
		return "reviewer"
	}
	return "public"
}

// Link is a time-limited URL to a stored document.
type Link struct {
	URL       string
	ExpiresIn time.Duration
}

// ListResult is one page of records.
type ListResult struct {
	Items  []submissions.Submission
	Total  int
	Limit  int
	Offset int
}

// PublicQuery narrows the public listing. Limit 0 returns every public record.
type PublicQuery struct {
	Search string
	Tag    string
	Limit  int
	Offset int
}

// Removed describes a deleted record.
type Removed struct {
	ID          int64
	Title       string
	FileDeleted bool
}

// Service implements reviewer moderation and the public read path.
type Service struct {
	Repo  submissions.Repo
	Store object.ObjectStore
	Now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo submissions.Repo, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Store: store, Now: time.Now}
}

// List returns a filtered page of records, newest first.
func (s *Service) List(ctx context.Context, f submissions.Filter, p submissions.Page) (ListResult, error) {
	if f.Visibility != "" && !f.Visibility.Valid() {
		return ListResult{}, submissions.ErrInvalidVisibility
	}
	f.Scope = submissions.SearchSubmitter
	items, total, err := s.Repo.Query(ctx, f, p)
	if err != nil {
		return ListResult{}, fmt.Errorf("query submissions: %w", err)
	}
	return ListResult{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

// Stats counts records per visibility.
func (s *Service) Stats(ctx context.Context) (submissions.Stats, error) {
	st, err := s.Repo.CountByVisibility(ctx)
	if err != nil {
		return submissions.Stats{}, fmt.Errorf("count submissions: %w", err)
	}
	return st, nil
}

// SetVisibility moves one record to v and stamps the review fields.
func (s *Service) SetVisibility(ctx context.Context, id int64, v submissions.Visibility, by submissions.Reviewer) (submissions.Submission, error) {
	if !v.Valid() {
		return submissions.Submission{}, submissions.ErrInvalidVisibility
	}
	updated, err := s.Repo.SetVisibility(ctx, id, v, by, s.now())
	if err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			return submissions.Submission{}, ErrNotFound
		}
		return submissions.Submission{}, fmt.Errorf("set visibility: %w", err)
	}
	metrics.AddVisibilityUpdates(string(v), 1)
	telemetry.Info("moderation.visibility_set", map[string]any{
		"submission_id": id,
		"visibility":    string(v),
		"reviewer":      by.Email,
	})
	return updated, nil
}

// SetVisibilityBulk moves every existing id to v. Unknown ids are skipped and not counted.
func (s *Service) SetVisibilityBulk(ctx context.Context, ids []int64, v submissions.Visibility, by submissions.Reviewer) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", ErrInvalidArgument)
	}
	if !v.Valid() {
		return 0, fmt.Errorf("%w: visibility must be one of pending, public, private", ErrInvalidArgument)
	}

	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	n, err := s.Repo.UpdateVisibility(ctx, unique, v, by, s.now())
	if err != nil {
		return 0, fmt.Errorf("bulk set visibility: %w", err)
	}
	metrics.AddVisibilityUpdates(string(v), n)
	telemetry.Info("moderation.visibility_bulk", map[string]any{
		"requested":  len(unique),
		"updated":    n,
		"visibility": string(v),
		"reviewer":   by.Email,
	})
	return n, nil
}

// Remove deletes the record's object (best effort) and then the record itself.
func (s *Service) Remove(ctx context.Context, id int64, by submissions.Reviewer) (Removed, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			return Removed{}, ErrNotFound
		}
		return Removed{}, fmt.Errorf("get submission: %w", err)
	}

	out := Removed{ID: rec.ID, Title: rec.Title}
	if loc, ok := submissions.Locate(rec); ok {
		if err := s.Store.Delete(ctx, loc.Key); err != nil {
			telemetry.Warn("moderation.object_delete_failed", map[string]any{
				"submission_id": id,
				"key":           loc.Key,
				"locator":       loc.Kind.String(),
				"error":         err.Error(),
			})
		} else {
			out.FileDeleted = true
		}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			return Removed{}, ErrNotFound
		}
		return Removed{}, fmt.Errorf("delete submission: %w", err)
	}
	telemetry.Info("moderation.removed", map[string]any{
		"submission_id": id,
		"file_deleted":  out.FileDeleted,
		"reviewer":      by.Email,
	})
	return out, nil
}

// IssuePreviewLink signs a URL for the record's document. Reviewers may preview any record
// with a file; the public only public ones.
func (s *Service) IssuePreviewLink(ctx context.Context, id int64, who Requester) (Link, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, submissions.ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, fmt.Errorf("get submission: %w", err)
	}

	ttl := ReviewerLinkTTL
	if who != RequesterReviewer {
		if rec.Visibility != submissions.VisibilityPublic {
			return Link{}, ErrNotFound
		}
		ttl = PublicLinkTTL
	}

	loc, ok := submissions.Locate(rec)
	if !ok {
		return Link{}, ErrNotFound
	}
	url, err := s.Store.Sign(ctx, loc.Key, ttl)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, fmt.Errorf("sign preview link: %w", err)
	}
	metrics.IncPreviewLink(who.String())
	return Link{URL: url, ExpiresIn: ttl}, nil
}

// ListPublic returns public records only, newest first.
func (s *Service) ListPublic(ctx context.Context, q PublicQuery) (ListResult, error) {
	f := submissions.Filter{
		Visibility: submissions.VisibilityPublic,
		Search:     q.Search,
		Scope:      submissions.SearchContent,
		Tag:        q.Tag,
	}
	p := submissions.Page{Limit: q.Limit, Offset: q.Offset}
	items, total, err := s.Repo.Query(ctx, f, p)
	if err != nil {
		return ListResult{}, fmt.Errorf("query public submissions: %w", err)
	}
	return ListResult{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
