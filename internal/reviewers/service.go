package reviewers

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// RecordLogin upserts the reviewer and bumps the last login time.
func (s *Service) RecordLogin(ctx context.Context, email, name, picture string) (Reviewer, error) {
	if s == nil || s.Repo == nil {
		return Reviewer{}, errors.New("reviewers service not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Reviewer{}, errors.New("reviewer email is required")
	}
	return s.Repo.RecordLogin(ctx, Reviewer{Email: email, Name: strings.TrimSpace(name), PictureURL: picture})
}

func (s *Service) Get(ctx context.Context, email string) (Reviewer, error) {
	if s == nil || s.Repo == nil {
		return Reviewer{}, errors.New("reviewers service not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Reviewer{}, errors.New("reviewer email is required")
	}
	return s.Repo.GetByEmail(ctx, email)
}
