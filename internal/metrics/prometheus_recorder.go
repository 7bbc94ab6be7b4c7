package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	buildDuration   prom.Histogram
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	pagesRendered   prom.Counter
	pagesSkipped    prom.Counter
	filesCopied     prom.Counter
	imagesConverted prom.Counter
}

// NewPrometheusRecorder constructs and registers webgen metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "webgen",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "webgen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pagesRendered: prom.NewCounter(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "pages_rendered_total",
			Help:      "Pages rendered and written",
		}),
		pagesSkipped: prom.NewCounter(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "pages_skipped_total",
			Help:      "Pages skipped because the cached output was fresh",
		}),
		filesCopied: prom.NewCounter(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "static_files_copied_total",
			Help:      "Static files installed into the target tree",
		}),
		imagesConverted: prom.NewCounter(prom.CounterOpts{
			Namespace: "webgen",
			Name:      "images_converted_total",
			Help:      "Images converted or resized",
		}),
	}
	reg.MustRegister(
		pr.buildDuration, pr.stageDuration, pr.stageResults, pr.buildOutcome,
		pr.pagesRendered, pr.pagesSkipped, pr.filesCopied, pr.imagesConverted,
	)
	return pr
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	pr.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	pr.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcome.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) AddPagesRendered(n int)   { pr.pagesRendered.Add(float64(n)) }
func (pr *PrometheusRecorder) AddPagesSkipped(n int)    { pr.pagesSkipped.Add(float64(n)) }
func (pr *PrometheusRecorder) AddFilesCopied(n int)     { pr.filesCopied.Add(float64(n)) }
func (pr *PrometheusRecorder) AddImagesConverted(n int) { pr.imagesConverted.Add(float64(n)) }

// Handler returns an http.Handler serving the recorder's registry.
func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
