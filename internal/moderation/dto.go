package moderation

import (
	"encoding/json"
	"time"

	"docshare-backend/internal/submissions"
)

// SubmissionResponse is the reviewer-facing representation of a record.
type SubmissionResponse struct {
	ID                int64           `json:"id"`
	SubmitterName     string          `json:"submitter_name"`
	SubmitterEmail    string          `json:"submitter_email"`
	PeerReviewerName  string          `json:"peer_reviewer_name,omitempty"`
	PeerReviewerEmail string          `json:"peer_reviewer_email,omitempty"`
	Title             string          `json:"title"`
	Source            string          `json:"source,omitempty"`
	OriginalAbstract  string          `json:"original_abstract,omitempty"`
	FinalAbstract     string          `json:"final_abstract,omitempty"`
	Tags              []string        `json:"tags"`
	HasFile           bool            `json:"has_file"`
	FileName          string          `json:"file_name,omitempty"`
	FileSize          int64           `json:"file_size,omitempty"`
	FileContentType   string          `json:"file_content_type,omitempty"`
	Visibility        string          `json:"visibility"`
	CreatedAt         time.Time       `json:"created_at"`
	ReviewedAt        *time.Time      `json:"reviewed_at"`
	ReviewedBy        *string         `json:"reviewed_by"`
	FormData          json.RawMessage `json:"form_data,omitempty"`
}

// ArticleResponse is the public representation of a record. Contact details stay private.
type ArticleResponse struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	SubmitterName    string    `json:"submitter_name"`
	Source           string    `json:"source,omitempty"`
	OriginalAbstract string    `json:"original_abstract,omitempty"`
	FinalAbstract    string    `json:"final_abstract,omitempty"`
	Tags             []string  `json:"tags"`
	HasFile          bool      `json:"has_file"`
	CreatedAt        time.Time `json:"created_at"`
}

type pageResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type linkResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

func toSubmissionResponse(s submissions.Submission) SubmissionResponse {
	_, hasFile := submissions.Locate(s)
	out := SubmissionResponse{
		ID:                s.ID,
		SubmitterName:     s.SubmitterName,
		SubmitterEmail:    s.SubmitterEmail,
		PeerReviewerName:  s.PeerReviewerName,
		PeerReviewerEmail: s.PeerReviewerEmail,
		Title:             s.Title,
		Source:            s.Source,
		OriginalAbstract:  s.OriginalAbstract,
		FinalAbstract:     s.FinalAbstract,
		Tags:              nonNilTags(s.Tags),
		HasFile:           hasFile,
		FileName:          s.FileName,
		FileSize:          s.FileSize,
		FileContentType:   s.FileContentType,
		Visibility:        string(s.Visibility),
		CreatedAt:         s.CreatedAt,
		ReviewedAt:        s.ReviewedAt,
		FormData:          s.FormData,
	}
	if s.ReviewedBy != "" {
		by := s.ReviewedBy
		out.ReviewedBy = &by
	}
	return out
}

func toArticleResponse(s submissions.Submission) ArticleResponse {
	_, hasFile := submissions.Locate(s)
	return ArticleResponse{
		ID:               s.ID,
		Title:            s.Title,
		SubmitterName:    s.SubmitterName,
		Source:           s.Source,
		OriginalAbstract: s.OriginalAbstract,
		FinalAbstract:    s.FinalAbstract,
		Tags:             nonNilTags(s.Tags),
		HasFile:          hasFile,
		CreatedAt:        s.CreatedAt,
	}
}

func toPage[T any](res ListResult, conv func(submissions.Submission) T) pageResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, s := range res.Items {
		items = append(items, conv(s))
	}
	return pageResponse[T]{Items: items, Total: res.Total, Limit: res.Limit, Offset: res.Offset}
}

func toLinkResponse(l Link) linkResponse {
	return linkResponse{URL: l.URL, ExpiresIn: int(l.ExpiresIn / time.Second)}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
