// Package metrics defines observability hooks for build instrumentation.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives build and stage measurements. The NoopRecorder is used
// when metrics are not configured.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|failed|canceled
	AddPagesRendered(n int)
	AddPagesSkipped(n int)
	AddFilesCopied(n int)
	AddImagesConverted(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration)  {}
func (NoopRecorder) IncStageResult(string, ResultLabel)          {}
func (NoopRecorder) IncBuildOutcome(string)                      {}
func (NoopRecorder) AddPagesRendered(int)                        {}
func (NoopRecorder) AddPagesSkipped(int)                         {}
func (NoopRecorder) AddFilesCopied(int)                          {}
func (NoopRecorder) AddImagesConverted(int)                      {}
