package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	submissionsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "submissions_total",
		Help:      "Webhook submissions by outcome.",
	}, []string{"outcome"})

	fileUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "file_uploads_total",
		Help:      "Attachment writes to the object store by outcome.",
	}, []string{"outcome"})

	orphanedObjects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "orphaned_objects_total",
		Help:      "Objects left without a referencing record, by reason and resolution.",
	}, []string{"reason", "resolution"})

	visibilityTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "visibility_updates_total",
		Help:      "Records moved to a visibility by moderation actions.",
	}, []string{"visibility"})

	previewLinks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "preview_links_total",
		Help:      "Signed preview links issued by requester kind.",
	}, []string{"requester"})

	sweepJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docshare",
		Name:      "orphan_sweep_jobs_total",
		Help:      "Orphan sweep queue messages by result.",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		submissionsReceived,
		fileUploads,
		orphanedObjects,
		visibilityTransitions,
		previewLinks,
		sweepJobs,
		collectors.NewGoCollector(),
	)
}

// IncSubmission counts a webhook call ("accepted", "rejected", "failed").
func IncSubmission(outcome string) {
	submissionsReceived.WithLabelValues(outcome).Inc()
}

// IncFileUpload counts an attachment write ("stored", "failed").
func IncFileUpload(outcome string) {
	fileUploads.WithLabelValues(outcome).Inc()
}

// IncOrphanedObject counts an orphaned object and how it was handled.
func IncOrphanedObject(reason, resolution string) {
	orphanedObjects.WithLabelValues(reason, resolution).Inc()
}

// AddVisibilityUpdates counts n records moved to visibility.
func AddVisibilityUpdates(visibility string, n int) {
	if n <= 0 {
		return
	}
	visibilityTransitions.WithLabelValues(visibility).Add(float64(n))
}

// IncPreviewLink counts an issued preview link.
func IncPreviewLink(requester string) {
	previewLinks.WithLabelValues(requester).Inc()
}

// IncSweepJob counts a processed orphan sweep message.
func IncSweepJob(result string) {
	sweepJobs.WithLabelValues(result).Inc()
}

// Registry exposes the registry for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
