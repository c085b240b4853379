package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	sampleKey  contextKey = "sample_dir"
	datasetKey contextKey = "dataset_dir"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID correlates every line emitted by one upload run.
	FieldRunID = "run_id"
	// FieldSampleDir is the sample directory being processed.
	FieldSampleDir = "sample_dir"
	// FieldDatasetDir is the dataset directory being uploaded.
	FieldDatasetDir = "dataset_dir"
)

// WithRunID annotates ctx with the upload run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithSample annotates ctx with the sample directory under upload.
func WithSample(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, sampleKey, dir)
}

// WithDataset annotates ctx with the dataset directory under upload.
func WithDataset(ctx context.Context, dir string) context.Context {
	if dir == "" {
		return ctx
	}
	return context.WithValue(ctx, datasetKey, dir)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if dir, ok := ctx.Value(sampleKey).(string); ok && dir != "" {
		fields = append(fields, slog.String(FieldSampleDir, dir))
	}
	if dir, ok := ctx.Value(datasetKey).(string); ok && dir != "" {
		fields = append(fields, slog.String(FieldDatasetDir, dir))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
