package submissions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]Submission

	// Now stamps created_at on insert.
	Now func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[int64]Submission),
		Now:  time.Now,
	}
}

// Insert stores s as a new pending record and assigns its id and creation time.
func (r *MemoryRepo) Insert(ctx context.Context, s Submission) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = r.Now().UTC()
	s.Visibility = VisibilityPending
	s.ReviewedAt = nil
	s.ReviewedBy = ""
	s.Tags = append([]string{}, s.Tags...)
	r.data[s.ID] = s
	return clone(s), nil
}

// Query returns matching records newest first along with the unpaged total.
func (r *MemoryRepo) Query(ctx context.Context, f Filter, p Page) ([]Submission, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	matched := make([]Submission, 0, len(r.data))
	for _, s := range r.data {
		if matches(s, f) {
			matched = append(matched, clone(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Submission{}, total, nil
	}
	end := total
	if p.Limit > 0 && offset+p.Limit < end {
		end = offset + p.Limit
	}
	return matched[offset:end], total, nil
}

// GetByID returns one record.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return clone(s), nil
}

// SetVisibility updates one record and returns it.
func (r *MemoryRepo) SetVisibility(ctx context.Context, id int64, v Visibility, by Reviewer, at time.Time) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	if !v.Valid() {
		return Submission{}, ErrInvalidVisibility
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	s = review(s, v, by, at)
	r.data[id] = s
	return clone(s), nil
}

// UpdateVisibility updates every existing id and returns how many were changed.
func (r *MemoryRepo) UpdateVisibility(ctx context.Context, ids []int64, v Visibility, by Reviewer, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !v.Valid() {
		return 0, ErrInvalidVisibility
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{}, len(ids))
	updated := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s, ok := r.data[id]
		if !ok {
			continue
		}
		r.data[id] = review(s, v, by, at)
		updated++
	}
	return updated, nil
}

// Delete removes one record.
func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// CountByVisibility tallies records per visibility.
func (r *MemoryRepo) CountByVisibility(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var st Stats
	for _, s := range r.data {
		st.add(s.Visibility, 1)
	}
	return st, nil
}

// KeyReferenced reports whether any record still points at key.
func (r *MemoryRepo) KeyReferenced(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.data {
		if s.FileKey == key {
			return true, nil
		}
	}
	return false, nil
}

func review(s Submission, v Visibility, by Reviewer, at time.Time) Submission {
	at = at.UTC()
	s.Visibility = v
	s.ReviewedAt = &at
	s.ReviewedBy = reviewerLabel(by)
	return s
}

// reviewerLabel prefers the email since it is the allow-list identity.
func reviewerLabel(by Reviewer) string {
	if by.Email != "" {
		return by.Email
	}
	return by.Name
}

func matches(s Submission, f Filter) bool {
	if f.Visibility != "" && s.Visibility != f.Visibility {
		return false
	}
	if f.Tag != "" && !s.HasTag(f.Tag) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	var fields []string
	switch f.Scope {
	case SearchContent:
		fields = []string{s.Title, s.OriginalAbstract, s.FinalAbstract, s.SubmitterName}
	default:
		fields = []string{s.Title, s.SubmitterName, s.SubmitterEmail}
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func clone(s Submission) Submission {
	s.Tags = append([]string{}, s.Tags...)
	if s.ReviewedAt != nil {
		at := *s.ReviewedAt
		s.ReviewedAt = &at
	}
	if s.FormData != nil {
		s.FormData = append([]byte(nil), s.FormData...)
	}
	return s
}

var _ Repo = (*MemoryRepo)(nil)
