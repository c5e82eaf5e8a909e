package reviewers

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("reviewer not found")

// Repo persists reviewer login records keyed by lowercase email.
type Repo interface {
	RecordLogin(ctx context.Context, r Reviewer) (Reviewer, error)
	GetByEmail(ctx context.Context, email string) (Reviewer, error)
}
