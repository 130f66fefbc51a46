// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the
// engine, with helpers that attach dashboard/source/pipeline context fields.
// All helpers use structured logging with consistent field names (snake_case).
package logger

import (
	"log/slog"
	"os"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetLevel configures the logging level.
func SetLevel(level slog.Level) {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetTextOutput switches to a text handler on stderr.
// Used by the CLI for human-readable console output.
func SetTextOutput(level slog.Level) {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithSource returns a logger with source context.
func WithSource(sourceName string) *slog.Logger {
	return Logger.With("source", sourceName)
}

// WithPipeline returns a logger with pipeline context.
func WithPipeline(pipelineID string) *slog.Logger {
	return Logger.With("pipeline_id", pipelineID)
}

// ComputeContext carries context information for pipeline computation logging.
type ComputeContext struct {
	// PipelineID identifies the pipeline being computed (required)
	PipelineID string
	// Target is the title of the owning target, if any
	Target string
	// View is the consuming view, if any
	View string
	// Table is the source table feeding the pipeline
	Table string
	// Stage is the current computation stage (source, filter, transform)
	Stage string
}

// attrs converts the context to slog attributes, omitting empty fields.
func (c ComputeContext) attrs() []any {
	out := make([]any, 0, 10)
	out = append(out, slog.String("pipeline_id", c.PipelineID))
	if c.Target != "" {
		out = append(out, slog.String("target", c.Target))
	}
	if c.View != "" {
		out = append(out, slog.String("view", c.View))
	}
	if c.Table != "" {
		out = append(out, slog.String("table", c.Table))
	}
	if c.Stage != "" {
		out = append(out, slog.String("stage", c.Stage))
	}
	return out
}

// LogComputeStart logs the start of a pipeline computation.
func LogComputeStart(ctx ComputeContext) {
	Logger.Debug("pipeline computation started", ctx.attrs()...)
}

// LogComputeEnd logs the completion of a pipeline computation.
// If err is non-nil the computation failed and is logged at error level.
func LogComputeEnd(ctx ComputeContext, rows int, duration time.Duration, err error) {
	attrs := ctx.attrs()
	attrs = append(attrs,
		slog.Int("rows", rows),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		Logger.Error("pipeline computation failed", attrs...)
		return
	}
	Logger.Debug("pipeline computation completed", attrs...)
}

// LogStage logs completion of a single stage within a computation.
func LogStage(ctx ComputeContext, rows int, duration time.Duration) {
	attrs := ctx.attrs()
	attrs = append(attrs,
		slog.Int("rows", rows),
		slog.Duration("duration", duration),
	)
	Logger.Debug("stage completed", attrs...)
}
