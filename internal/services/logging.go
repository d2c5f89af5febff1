package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// LogOperation records one service operation against a template lineage with
// its outcome and duration. Expected failures (validation, blocked edits,
// missing rows) log below error level so alerting stays meaningful.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, templateName string, templateVersion int, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsInvariantViolation(err):
			level = slog.LevelWarn
			status = "invariant_violation"
		case IsValidation(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsConflict(err):
			level = slog.LevelWarn
			status = "conflict"
		case IsNotFound(err):
			level = slog.LevelInfo
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("template_name", templateName),
		slog.Int("template_version", templateVersion),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var invariantErr *InvariantViolationError
		if validationErrs, ok := err.(ValidationErrors); ok {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		} else if errors.As(err, &invariantErr) {
			attrs = append(attrs, slog.String("rule", invariantErr.Rule))
		}
	}

	if level == slog.LevelDebug && !l.config.EnableDebug {
		return
	}
	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s %s", operation, status), attrs...)
}

// LogValidationError dumps the individual field problems of a rejected
// payload. Only the first few are expanded to keep log lines bounded.
func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, templateName string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("template_name", templateName),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i >= 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("rule", err.Rule),
			slog.String("message", err.Message),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, fmt.Sprintf("%s validation failed", operation), attrs...)
}

// LogInvariantViolation records a structural edit that was blocked because
// the targeted template version already has submissions.
func (l *ServiceLogger) LogInvariantViolation(ctx context.Context, operation, templateName string, templateVersion int, violation *InvariantViolationError) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, fmt.Sprintf("%s blocked on in-use version", operation),
		slog.String("operation", operation),
		slog.String("template_name", templateName),
		slog.Int("template_version", templateVersion),
		slog.String("rule", violation.Rule),
		slog.String("detail", violation.Message),
	)
}

// LogFork records a copy-on-write fork with enough context to trace a
// lineage's version history from logs alone.
func (l *ServiceLogger) LogFork(ctx context.Context, templateName string, fromVersion, toVersion int, reason string, duration time.Duration) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "template version forked",
		slog.String("template_name", templateName),
		slog.Int("from_version", fromVersion),
		slog.Int("to_version", toVersion),
		slog.String("reason", reason),
		slog.Duration("duration", duration),
	)
}
