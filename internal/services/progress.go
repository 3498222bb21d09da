package services

import "context"

// ProgressReporter is the optional capability callers hand to the analysis
// executor. Reported values within one execution are non-decreasing; the
// executor enforces that before calling Report.
type ProgressReporter interface {
	Report(ctx context.Context, percent int)
}

type noopProgressReporter struct{}

func (noopProgressReporter) Report(context.Context, int) {}

// NoopProgressReporter is the default when the caller does not care about
// progress.
func NoopProgressReporter() ProgressReporter { return noopProgressReporter{} }

// ProgressFunc adapts a plain function to ProgressReporter.
type ProgressFunc func(ctx context.Context, percent int)

func (f ProgressFunc) Report(ctx context.Context, percent int) { f(ctx, percent) }
