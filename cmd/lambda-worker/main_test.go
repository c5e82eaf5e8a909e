package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"

	"docshare-backend/internal/workerproc"
)

type stubStore struct{ err error }

func (s stubStore) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	return nil
}
func (s stubStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}
func (s stubStore) Delete(ctx context.Context, key string) error { return s.err }

type stubChecker struct{}

func (stubChecker) KeyReferenced(ctx context.Context, key string) (bool, error) { return false, nil }

func TestSweepBatchReportsOnlyRetryableFailures(t *testing.T) {
	sweeper := &workerproc.Sweeper{Store: stubStore{err: errors.New("s3 down")}, Repo: stubChecker{}}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad", Body: "{nope"},
		{MessageId: "retry", Body: `{"key":"documents/a.pdf"}`},
	}}

	resp := sweepBatch(context.Background(), sweeper, event)

	assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "retry"}}, resp.BatchItemFailures)
}

func TestSweepBatchSucceeds(t *testing.T) {
	sweeper := &workerproc.Sweeper{Store: stubStore{}, Repo: stubChecker{}}
	event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "ok", Body: `{"key":"documents/a.pdf"}`}}}

	resp := sweepBatch(context.Background(), sweeper, event)

	assert.Empty(t, resp.BatchItemFailures)
}
