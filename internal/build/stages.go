package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/webgen/internal/metrics"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, st *State) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError carries the category and underlying cause of a stage failure.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func fatal(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func warning(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func canceled(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

type namedStage struct {
	name string
	fn   Stage
}

// runStages executes stages in order, recording timing and classification,
// stopping on the first fatal error. Warnings accumulate on the report.
func runStages(ctx context.Context, st *State, stages []namedStage) error {
	rec := st.Opts.Recorder
	for _, stage := range stages {
		select {
		case <-ctx.Done():
			se := canceled(stage.name, ctx.Err())
			st.Report.addWarningOrError(se)
			rec.IncStageResult(stage.name, metrics.ResultCanceled)
			return se
		default:
		}

		t0 := time.Now()
		err := stage.fn(ctx, st)
		dur := time.Since(t0)
		st.Report.StageDurations[stage.name] = dur
		rec.ObserveStageDuration(stage.name, dur)

		if err == nil {
			rec.IncStageResult(stage.name, metrics.ResultSuccess)
			slog.Debug("Stage completed", "stage", stage.name, "duration", dur)
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			se = fatal(stage.name, err)
		}
		st.Report.addWarningOrError(se)
		switch se.Kind {
		case StageErrorWarning:
			rec.IncStageResult(stage.name, metrics.ResultWarning)
			slog.Warn("Stage completed with warnings", "stage", stage.name, "error", se.Err)
		case StageErrorCanceled:
			rec.IncStageResult(stage.name, metrics.ResultCanceled)
			return se
		default:
			rec.IncStageResult(stage.name, metrics.ResultFatal)
			return se
		}
	}
	return nil
}
