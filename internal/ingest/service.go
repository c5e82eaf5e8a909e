package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docshare-backend/internal/shared/metrics"
	"docshare-backend/internal/shared/storage/object"
	"docshare-backend/internal/shared/telemetry"
	"docshare-backend/internal/shared/util"
	"docshare-backend/internal/submissions"
)

// KeyPrefix is the object-store folder every uploaded document lands in.
const KeyPrefix = "documents/"

// ErrInvalidSubmission indicates a required field is missing.
var ErrInvalidSubmission = errors.New("invalid submission")

// Fields carries the text parts of a webhook submission.
type Fields struct {
	SubmitterName     string
	SubmitterEmail    string
	PeerReviewerName  string
	PeerReviewerEmail string
	Title             string
	Source            string
	OriginalAbstract  string
	FinalAbstract     string
	Tags              string

	// Raw holds every form value as received, kept as a backup on the record.
	Raw map[string]string
}

// File is an uploaded document held in memory.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Result reports what was stored.
type Result struct {
	ID           int64
	CreatedAt    time.Time
	FileUploaded bool
}

// Service validates submissions and writes them to the object and record stores.
type Service struct {
	Store      object.ObjectStore
	Repo       submissions.Repo
	Reconciler Reconciler
	Source     string

	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service. A nil reconciler falls back to logging orphans.
func NewService(store object.ObjectStore, repo submissions.Repo, reconciler Reconciler) *Service {
	if reconciler == nil {
		reconciler = LogReconciler{}
	}
	return &Service{
		Store:      store,
		Repo:       repo,
		Reconciler: reconciler,
		Source:     "webhook",
		Now:        time.Now,
		NewID:      func() string { return uuid.NewString() },
	}
}

// Submit stores file (if any) and then inserts the record. A failed object write does not
// fail the submission; the record is created without a key and FileUploaded is false.
func (s *Service) Submit(ctx context.Context, in Fields, file *File) (Result, error) {
	in = trimFields(in)
	if err := validate(in); err != nil {
		metrics.IncSubmission("rejected")
		return Result{}, err
	}

	now := s.now()
	sub := submissions.Submission{
		SubmitterName:     in.SubmitterName,
		SubmitterEmail:    in.SubmitterEmail,
		PeerReviewerName:  in.PeerReviewerName,
		PeerReviewerEmail: in.PeerReviewerEmail,
		Title:             in.Title,
		Source:            in.Source,
		OriginalAbstract:  in.OriginalAbstract,
		FinalAbstract:     in.FinalAbstract,
		Tags:              ParseTags(in.Tags),
	}

	uploaded := false
	if file != nil {
		key := BuildKey(now, s.newID(), file.Name)
		sub.FileName = file.Name
		sub.FileSize = int64(len(file.Body))
		sub.FileContentType = file.ContentType

		err := s.Store.Put(ctx, key, file.Body, file.ContentType, objectMetadata(in, file))
		if err != nil {
			metrics.IncFileUpload("failed")
			telemetry.Warn("ingest.file_upload_failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		} else {
			metrics.IncFileUpload("stored")
			sub.FileKey = key
			uploaded = true
		}
	}

	backup, err := formBackup(s.Source, now, in.Raw, file)
	if err != nil {
		telemetry.Warn("ingest.form_backup_failed", map[string]any{"error": err.Error()})
	}
	sub.FormData = backup

	created, err := s.Repo.Insert(ctx, sub)
	if err != nil {
		metrics.IncSubmission("failed")
		if uploaded {
			s.Reconciler.Orphaned(context.WithoutCancel(ctx), OrphanedObject{
				Key:    sub.FileKey,
				Reason: ReasonInsertFailed,
				Cause:  err,
			})
		}
		return Result{}, fmt.Errorf("insert submission: %w", err)
	}

	metrics.IncSubmission("accepted")
	telemetry.Info("ingest.submission_created", map[string]any{
		"submission_id": created.ID,
		"file_uploaded": uploaded,
		"tags":          len(created.Tags),
	})
	return Result{ID: created.ID, CreatedAt: created.CreatedAt, FileUploaded: uploaded}, nil
}

// ParseTags splits a comma-separated list, trimming entries and dropping empties.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// BuildKey returns documents/{epochMillis}-{id}-{sanitized name}.
func BuildKey(at time.Time, id, fileName string) string {
	return KeyPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "-" + id + "-" + util.SanitizeFileName(fileName)
}

func validate(in Fields) error {
	switch {
	case in.SubmitterName == "":
		return fmt.Errorf("%w: submitter name is required", ErrInvalidSubmission)
	case in.SubmitterEmail == "":
		return fmt.Errorf("%w: submitter email is required", ErrInvalidSubmission)
	case in.Title == "":
		return fmt.Errorf("%w: document title is required", ErrInvalidSubmission)
	}
	return nil
}

func trimFields(in Fields) Fields {
	in.SubmitterName = strings.TrimSpace(in.SubmitterName)
	in.SubmitterEmail = strings.TrimSpace(in.SubmitterEmail)
	in.PeerReviewerName = strings.TrimSpace(in.PeerReviewerName)
	in.PeerReviewerEmail = strings.TrimSpace(in.PeerReviewerEmail)
	in.Title = strings.TrimSpace(in.Title)
	in.Source = strings.TrimSpace(in.Source)
	in.OriginalAbstract = strings.TrimSpace(in.OriginalAbstract)
	in.FinalAbstract = strings.TrimSpace(in.FinalAbstract)
	return in
}

// objectMetadata values travel as HTTP headers, so free text is percent-encoded.
func objectMetadata(in Fields, file *File) map[string]string {
	return map[string]string{
		"original-name": url.PathEscape(file.Name),
		"uploaded-by":   url.PathEscape(in.SubmitterEmail),
		"title":         url.PathEscape(in.Title),
	}
}

type fileInfo struct {
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type,omitempty"`
	Size         int    `json:"size"`
}

type formData struct {
	Source       string            `json:"source"`
	Timestamp    string            `json:"timestamp"`
	OriginalData map[string]string `json:"original_data"`
	FileInfo     *fileInfo         `json:"file_info"`
}

func formBackup(source string, at time.Time, raw map[string]string, file *File) (json.RawMessage, error) {
	if raw == nil {
		raw = map[string]string{}
	}
	payload := formData{
		Source:       source,
		Timestamp:    at.UTC().Format(time.RFC3339Nano),
		OriginalData: raw,
	}
	if file != nil {
		payload.FileInfo = &fileInfo{OriginalName: file.Name, ContentType: file.ContentType, Size: len(file.Body)}
	}
	return json.Marshal(payload)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
