package reviewers

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) RecordLogin(ctx context.Context, rev Reviewer) (Reviewer, error) {
	const query = `
INSERT INTO reviewers (email, name, picture_url, first_login_at, last_login_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (email) DO UPDATE SET
  name = EXCLUDED.name,
  picture_url = EXCLUDED.picture_url,
  last_login_at = now()
RETURNING first_login_at, last_login_at`
	err := r.DB.QueryRowContext(ctx, query,
		rev.Email,
		nullableString(rev.Name),
		nullableString(rev.PictureURL),
	).Scan(&rev.FirstLoginAt, &rev.LastLoginAt)
	if err != nil {
		return Reviewer{}, err
	}
	return rev, nil
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Reviewer, error) {
	const query = `
SELECT email, name, picture_url, first_login_at, last_login_at
FROM reviewers
WHERE email = $1`
	var rev Reviewer
	var name sql.NullString
	var pictureURL sql.NullString
	err := r.DB.QueryRowContext(ctx, query, email).Scan(
		&rev.Email,
		&name,
		&pictureURL,
		&rev.FirstLoginAt,
		&rev.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reviewer{}, ErrNotFound
		}
		return Reviewer{}, err
	}
	rev.Name = name.String
	rev.PictureURL = pictureURL.String
	return rev, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
