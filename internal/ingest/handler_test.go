package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/telemetry"
	"docshare-backend/internal/submissions"
)

func newWebhookRouter(t *testing.T, secret string) (*gin.Engine, *fakeStore, *submissions.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	store := newFakeStore()
	repo := submissions.NewMemoryRepo()
	h := NewHandler(NewService(store, repo, nil), secret)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, store, repo
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("document", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func webhookFields() map[string]string {
	return map[string]string{
		"your_name":         "Ada",
		"your_email":        "ada@example.com",
		"doc_title":         "Notes",
		"original_abstract": "abstract",
		"content_tags":      "math, history",
	}
}

func TestWebhookAcceptsMultipartWithFile(t *testing.T) {
	router, store, repo := newWebhookRouter(t, "")
	body, contentType := multipartBody(t, webhookFields(), "paper.pdf", []byte("%PDF-1.4 test"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Success || !got.Data.FileUploaded || got.Data.ID == 0 || got.Data.CreatedAt == "" {
		t.Fatalf("unexpected response %+v", got)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.objects))
	}

	rec, err := repo.GetByID(context.Background(), got.Data.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.FileContentType != "application/pdf" {
		t.Fatalf("expected sniffed pdf content type, got %q", rec.FileContentType)
	}
	if len(rec.Tags) != 2 || rec.Tags[1] != "history" {
		t.Fatalf("unexpected tags %v", rec.Tags)
	}
}

func TestWebhookWithoutFileReportsNotUploaded(t *testing.T) {
	router, store, _ := newWebhookRouter(t, "")
	body, contentType := multipartBody(t, webhookFields(), "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"file_uploaded":false`) {
		t.Fatalf("expected file_uploaded=false, got %s", resp.Body.String())
	}
	if len(store.objects) != 0 {
		t.Fatalf("expected no stored objects")
	}
}

func TestWebhookAcceptsLegacyFieldNames(t *testing.T) {
	router, _, repo := newWebhookRouter(t, "")
	body, contentType := multipartBody(t, map[string]string{
		"name":           "Ada",
		"email":          "ada@example.com",
		"document_title": "Notes",
		"tags":           "a,b",
	}, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	_, total, _ := repo.Query(context.Background(), submissions.Filter{Tag: "b"}, submissions.Page{})
	if total != 1 {
		t.Fatalf("expected tagged record, got %d", total)
	}
}

func TestWebhookRejectsMissingTitle(t *testing.T) {
	router, store, _ := newWebhookRouter(t, "")
	fields := webhookFields()
	delete(fields, "doc_title")
	body, contentType := multipartBody(t, fields, "paper.pdf", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "validation_error") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if len(store.objects) != 0 {
		t.Fatalf("rejected submission must not store a file")
	}
}

func TestWebhookChecksSharedSecret(t *testing.T) {
	router, _, _ := newWebhookRouter(t, "s3cret")

	body, contentType := multipartBody(t, webhookFields(), "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Webhook-Secret", "wrong")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	body, contentType = multipartBody(t, webhookFields(), "", nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Webhook-Secret", "s3cret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestWebhookAcceptsURLEncodedForm(t *testing.T) {
	router, _, _ := newWebhookRouter(t, "")
	form := "your_name=Ada&your_email=ada%40example.com&doc_title=Notes"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/submission", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}
