package ingest

import (
	"crypto/subtle"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/server/middleware"
	"docshare-backend/internal/shared/server/respond"
)

const (
	maxUploadSize    = 50 << 20 // 50MB
	maxFormMemory    = 8 << 20
	fileField        = "document"
	secretHeader     = "X-Webhook-Secret"
	successMessage   = "Submission received and processed successfully"
	internalErrorMsg = "failed to process submission"
)

// Handler wires the submission webhook to the service.
type Handler struct {
	Svc    *Service
	Secret string
}

// NewHandler constructs a Handler. An empty secret disables the header check.
func NewHandler(svc *Service, secret string) *Handler {
	return &Handler{Svc: svc, Secret: strings.TrimSpace(secret)}
}

// RegisterRoutes attaches the webhook route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook/submission", h.submit)
}

type submissionData struct {
	ID           int64  `json:"id"`
	CreatedAt    string `json:"created_at"`
	FileUploaded bool   `json:"file_uploaded"`
}

type submissionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    submissionData `json:"data"`
}

func (h *Handler) submit(c *gin.Context) {
	if h.Secret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "invalid webhook secret", nil)
			return
		}
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	if err := parseForm(c.Request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds 50MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form body", nil)
		return
	}

	fields := Fields{
		SubmitterName:     formValue(c, "your_name", "name"),
		SubmitterEmail:    formValue(c, "your_email", "email"),
		PeerReviewerName:  formValue(c, "peer_reviewer_name"),
		PeerReviewerEmail: formValue(c, "peer_reviewer_email"),
		Title:             formValue(c, "doc_title", "document_title"),
		Source:            formValue(c, "source"),
		OriginalAbstract:  formValue(c, "original_abstract", "abstract"),
		FinalAbstract:     formValue(c, "final_abstract"),
		Tags:              formValue(c, "content_tags", "tags"),
		Raw:               rawValues(c.Request),
	}

	file, err := readFile(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read document", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Submit(ctx, fields, file)
	if err != nil {
		if errors.Is(err, ErrInvalidSubmission) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", internalErrorMsg, nil)
		return
	}

	c.Set(middleware.SubmissionIDKey, res.ID)
	respond.JSON(c, http.StatusOK, submissionResponse{
		Success: true,
		Message: successMessage,
		Data: submissionData{
			ID:           res.ID,
			CreatedAt:    res.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			FileUploaded: res.FileUploaded,
		},
	})
}

func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formValue returns the first non-empty value among names.
func formValue(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Request.PostFormValue(name); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func rawValues(r *http.Request) map[string]string {
	raw := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	return raw
}

func readFile(c *gin.Context) (*File, error) {
	header, err := c.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	body, err := readHeader(header)
	if err != nil {
		return nil, err
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	return &File{Name: header.Filename, ContentType: contentType, Body: body}, nil
}

func readHeader(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
