package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"docshare-backend/internal/queue"
	"docshare-backend/internal/shared/metrics"
	"docshare-backend/internal/shared/storage/object"
	"docshare-backend/internal/shared/telemetry"
)

// Sweep results reported to metrics and logs.
const (
	ResultDeleted    = "deleted"
	ResultReferenced = "skipped_referenced"
	ResultFailed     = "failed"
	ResultDiscarded  = "discarded"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingKey indicates a message without an object key.
type ErrMissingKey struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingKey) Error() string { return "missing object key" }

// ErrProcess indicates the sweep failed after successful parsing. The message should be retried.
type ErrProcess struct {
	Key       string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "sweep object"
	}
	return "sweep object: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and should be dropped.
func Unrecoverable(err error) bool {
	var empty ErrEmptyBody
	var decode ErrDecode
	var missing ErrMissingKey
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.OrphanMessage, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.OrphanMessage{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.OrphanMessage{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	msg.Key = strings.TrimSpace(msg.Key)
	if msg.Key == "" {
		return msg, meta, ErrMissingKey{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// KeyChecker answers whether any record still points at an object key.
type KeyChecker interface {
	KeyReferenced(ctx context.Context, key string) (bool, error)
}

// Sweeper deletes orphaned objects named by queue messages. A key that a record
// references again is left alone.
type Sweeper struct {
	Store object.ObjectStore
	Repo  KeyChecker
}

// HandleMessage parses, validates, and sweeps one message payload.
func (s *Sweeper) HandleMessage(ctx context.Context, body string) (string, error) {
	msg, _, err := ParseMessage(body)
	if err != nil {
		metrics.IncSweepJob(ResultDiscarded)
		return ResultDiscarded, err
	}
	return s.Sweep(ctx, msg)
}

// Sweep deletes msg.Key unless it is still referenced.
func (s *Sweeper) Sweep(ctx context.Context, msg queue.OrphanMessage) (string, error) {
	if s == nil || s.Store == nil || s.Repo == nil {
		return ResultFailed, errors.New("sweeper not configured")
	}

	fields := map[string]any{
		"key":    msg.Key,
		"reason": msg.Reason,
	}
	if msg.RequestID != "" {
		fields["request_id"] = msg.RequestID
	}

	referenced, err := s.Repo.KeyReferenced(ctx, msg.Key)
	if err != nil {
		metrics.IncSweepJob(ResultFailed)
		return ResultFailed, ErrProcess{Key: msg.Key, RequestID: msg.RequestID, Err: err}
	}
	if referenced {
		telemetry.Info("sweeper.object_referenced", fields)
		metrics.IncSweepJob(ResultReferenced)
		return ResultReferenced, nil
	}

	if err := s.Store.Delete(ctx, msg.Key); err != nil {
		metrics.IncSweepJob(ResultFailed)
		return ResultFailed, ErrProcess{Key: msg.Key, RequestID: msg.RequestID, Err: err}
	}
	telemetry.Info("sweeper.object_deleted", fields)
	metrics.IncSweepJob(ResultDeleted)
	metrics.IncOrphanedObject(msg.Reason, "swept")
	return ResultDeleted, nil
}
