package ingest

import (
	"context"
	"sync"
	"time"

	"docshare-backend/internal/queue"
	"docshare-backend/internal/submissions"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	deleted []string
	putErr  error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	f.meta[key] = metadata
	return nil
}

func (f *fakeStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	return nil
}

type failingRepo struct {
	*submissions.MemoryRepo
	insertErr error
}

func (r failingRepo) Insert(ctx context.Context, s submissions.Submission) (submissions.Submission, error) {
	if r.insertErr != nil {
		return submissions.Submission{}, r.insertErr
	}
	return r.MemoryRepo.Insert(ctx, s)
}

type recordingReconciler struct {
	mu      sync.Mutex
	orphans []OrphanedObject
}

func (r *recordingReconciler) Orphaned(ctx context.Context, o OrphanedObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphans = append(r.orphans, o)
}

type fakeQueue struct {
	sent []queue.OrphanMessage
	err  error
}

func (q *fakeQueue) Send(ctx context.Context, msg queue.OrphanMessage) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, msg)
	return nil
}
