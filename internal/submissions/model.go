package submissions

import (
	"encoding/json"
	"strings"
	"time"
)

// Visibility is the moderation status of a submission.
type Visibility string

const (
	VisibilityPending Visibility = "pending"
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Visibilities lists every valid visibility in display order.
var Visibilities = []Visibility{VisibilityPending, VisibilityPublic, VisibilityPrivate}

// Valid reports whether v is one of the three known states.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPending, VisibilityPublic, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// ParseVisibility normalizes raw and reports whether it names a valid state.
func ParseVisibility(raw string) (Visibility, bool) {
	v := Visibility(strings.ToLower(strings.TrimSpace(raw)))
	return v, v.Valid()
}

// Submission is one document-plus-metadata record. Empty strings stand in for NULL columns.
type Submission struct {
	ID                int64
	SubmitterName     string
	SubmitterEmail    string
	PeerReviewerName  string
	PeerReviewerEmail string
	Title             string
	Source            string
	OriginalAbstract  string
	FinalAbstract     string
	Tags              []string
	FileKey           string
	FileURL           string
	FileName          string
	FileSize          int64
	FileContentType   string
	FormData          json.RawMessage
	Visibility        Visibility
	CreatedAt         time.Time
	ReviewedAt        *time.Time
	ReviewedBy        string
}

// HasTag reports exact membership of tag in the tag set.
func (s Submission) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Stats holds record counts per visibility.
type Stats struct {
	Pending int `json:"pending"`
	Public  int `json:"public"`
	Private int `json:"private"`
	Total   int `json:"total"`
}

func (s *Stats) add(v Visibility, n int) {
	switch v {
	case VisibilityPending:
		s.Pending += n
	case VisibilityPublic:
		s.Public += n
	case VisibilityPrivate:
		s.Private += n
	}
	s.Total += n
}
