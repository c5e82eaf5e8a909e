package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docshare-backend/internal/shared/storage/object"
)

// FilesRoute is where signed local URLs are served.
const FilesRoute = "/api/v1/files"

const metaSuffix = ".meta.json"

// Store implements ObjectStore using the local filesystem. Signed URLs point back at
// FilesRoute and carry an HMAC over the key and expiry.
type Store struct {
	baseDir    string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

type sidecar struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New creates a new local object store rooted at baseDir.
func New(baseDir, baseURL, signingKey string) *Store {
	return &Store{
		baseDir:    baseDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
}

// Put writes body to disk at key, with content type and metadata in a sidecar file.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", object.ErrUnavailable, err)
	}
	if err := os.WriteFile(fullPath, body, 0o644); err != nil {
		return fmt.Errorf("%w: write body: %v", object.ErrUnavailable, err)
	}
	meta, err := json.Marshal(sidecar{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(fullPath+metaSuffix, meta, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %v", object.ErrUnavailable, err)
	}
	return nil
}

// Sign returns a URL under FilesRoute valid for ttl.
func (s *Store) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", object.ErrNotFound
		}
		return "", err
	}

	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.signature(key, expires))
	return s.baseURL + FilesRoute + "/" + escapeKey(key) + "?" + q.Encode(), nil
}

// Delete removes key and its sidecar. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	for _, p := range []string{fullPath, fullPath + metaSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove: %v", object.ErrUnavailable, err)
		}
	}
	return nil
}

// Verify checks a signature produced by Sign.
func (s *Store) Verify(key, rawExpires, sig string) bool {
	expires, err := strconv.ParseInt(rawExpires, 10, 64)
	if err != nil {
		return false
	}
	if s.now().Unix() > expires {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.signature(key, expires)))
}

// Open returns the stored body and its content type.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", object.ErrNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(fullPath + metaSuffix); err == nil {
		var meta sidecar
		if json.Unmarshal(raw, &meta) == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return f, contentType, nil
}

func (s *Store) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(key + "|" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("invalid storage key")
	}
	return filepath.Join(s.baseDir, clean), nil
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ object.ObjectStore = (*Store)(nil)
