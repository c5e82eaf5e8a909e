package reviewers

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu        sync.RWMutex
	reviewers map[string]Reviewer
	now       func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{reviewers: make(map[string]Reviewer), now: time.Now}
}

func (r *MemoryRepo) RecordLogin(ctx context.Context, rev Reviewer) (Reviewer, error) {
	if err := ctx.Err(); err != nil {
		return Reviewer{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	if existing, ok := r.reviewers[rev.Email]; ok {
		rev.FirstLoginAt = existing.FirstLoginAt
	} else {
		rev.FirstLoginAt = now
	}
	rev.LastLoginAt = now
	r.reviewers[rev.Email] = rev
	return rev, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Reviewer, error) {
	if err := ctx.Err(); err != nil {
		return Reviewer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rev, ok := r.reviewers[email]
	if !ok {
		return Reviewer{}, ErrNotFound
	}
	return rev, nil
}
