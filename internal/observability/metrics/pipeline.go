// Package metrics provides Prometheus counters for pipeline outcomes.
// Metrics are registered with the default registry and pushed or scraped
// depending on how the job is deployed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	articlesCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "briefing_articles_collected_total",
			Help: "Total number of recent articles collected across all sources",
		},
	)

	summariesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_summaries_published_total",
			Help: "Total number of summaries published to object storage",
		},
		[]string{"provider"},
	)

	sourcesAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_sources_added_total",
			Help: "Total number of feed sources added by the explorer",
		},
	)

	sourcesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_sources_removed_total",
			Help: "Total number of stale feed sources pruned by the explorer",
		},
	)
)

// PipelineRecorder records pipeline outcome metrics. It satisfies both the
// briefing and explore recorder interfaces.
type PipelineRecorder struct{}

func NewPipelineRecorder() *PipelineRecorder { return &PipelineRecorder{} }

func (r *PipelineRecorder) RecordArticlesCollected(count int) {
	articlesCollectedTotal.Add(float64(count))
}

func (r *PipelineRecorder) RecordSummaryPublished(provider string) {
	summariesPublishedTotal.WithLabelValues(provider).Inc()
}

func (r *PipelineRecorder) RecordSourceAdded() {
	sourcesAddedTotal.Inc()
}

func (r *PipelineRecorder) RecordSourceRemoved() {
	sourcesRemovedTotal.Inc()
}
