// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithContext returns a logger carrying request_id and lead_id found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		out = out.WithRequestID(requestID)
	}
	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		out = out.WithLeadID(leadID)
	}
	return out
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With(slog.String("request_id", requestID))}
}

// WithLeadID returns a logger scoped to one lead
func (l *Logger) WithLeadID(leadID string) *Logger {
	return &Logger{Logger: l.With(slog.String("lead_id", leadID))}
}

// ContextWithLeadID stores the lead id so WithContext can pick it up downstream.
func ContextWithLeadID(ctx context.Context, leadID string) context.Context {
	return context.WithValue(ctx, LeadIDKey, leadID)
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// VendorCall logs one outbound call to a third-party API.
func (l *Logger) VendorCall(vendor, method, path string, status int, latency time.Duration) {
	level := slog.LevelDebug
	if status >= 400 || status == 0 {
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "vendor_call",
		slog.String("vendor", vendor),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Int64("latency_ms", latency.Milliseconds()),
	)
}

// AuthEvent logs login attempts for the admin and dashboard gates
func (l *Logger) AuthEvent(realm, subject string, success bool, reason string) {
	if success {
		l.Info("auth_event",
			slog.String("realm", realm),
			slog.String("subject", subject),
			slog.Bool("success", true),
		)
		return
	}
	l.Warn("auth_event",
		slog.String("realm", realm),
		slog.String("subject", subject),
		slog.Bool("success", false),
		slog.String("reason", reason),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
