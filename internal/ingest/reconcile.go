package ingest

import (
	"context"
	"time"

	"docshare-backend/internal/queue"
	"docshare-backend/internal/shared/metrics"
	"docshare-backend/internal/shared/storage/object"
	"docshare-backend/internal/shared/telemetry"
)

// ReasonInsertFailed marks an object whose record insert failed after upload.
const ReasonInsertFailed = "record_insert_failed"

// OrphanedObject is a stored object no record points at.
type OrphanedObject struct {
	Key    string
	Reason string
	Cause  error
}

// Reconciler decides what happens to orphaned objects. Implementations must not block the
// request for long and must not return errors to the caller; they log what they cannot fix.
type Reconciler interface {
	Orphaned(ctx context.Context, o OrphanedObject)
}

// LogReconciler records the orphan and leaves the object in place.
type LogReconciler struct{}

func (LogReconciler) Orphaned(ctx context.Context, o OrphanedObject) {
	metrics.IncOrphanedObject(o.Reason, "logged")
	telemetry.Error("ingest.orphaned_object", orphanFields(o))
}

// CompensatingReconciler deletes the orphan right away and hands it to Fallback when the
// delete fails.
type CompensatingReconciler struct {
	Store    object.ObjectStore
	Fallback Reconciler
}

func (r CompensatingReconciler) Orphaned(ctx context.Context, o OrphanedObject) {
	err := r.Store.Delete(ctx, o.Key)
	if err == nil {
		metrics.IncOrphanedObject(o.Reason, "deleted")
		telemetry.Warn("ingest.orphan_deleted", orphanFields(o))
		return
	}

	fields := orphanFields(o)
	fields["delete_error"] = err.Error()
	telemetry.Warn("ingest.orphan_delete_failed", fields)

	fallback := r.Fallback
	if fallback == nil {
		fallback = LogReconciler{}
	}
	fallback.Orphaned(ctx, o)
}

// QueueReconciler sends the orphan to the sweep queue and logs it if the send fails.
type QueueReconciler struct {
	Queue queue.Client
	Now   func() time.Time
}

func (r QueueReconciler) Orphaned(ctx context.Context, o OrphanedObject) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	msg := queue.OrphanMessage{
		Key:        o.Key,
		Reason:     o.Reason,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := r.Queue.Send(ctx, msg); err != nil {
		fields := orphanFields(o)
		fields["queue_error"] = err.Error()
		telemetry.Error("ingest.orphan_enqueue_failed", fields)
		LogReconciler{}.Orphaned(ctx, o)
		return
	}
	metrics.IncOrphanedObject(o.Reason, "queued")
	telemetry.Info("ingest.orphan_queued", orphanFields(o))
}

func orphanFields(o OrphanedObject) map[string]any {
	fields := map[string]any{
		"key":    o.Key,
		"reason": o.Reason,
	}
	if o.Cause != nil {
		fields["error"] = o.Cause.Error()
	}
	return fields
}

type requestIDKey struct{}

// WithRequestID tags ctx so queued orphans can be traced back to their request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
