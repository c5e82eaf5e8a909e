package reviewers

import "time"

// Reviewer is an allow-listed moderator who has signed in at least once.
type Reviewer struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PictureURL   string    `json:"picture_url"`
	FirstLoginAt time.Time `json:"first_login_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}
