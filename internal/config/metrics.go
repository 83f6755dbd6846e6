package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	validationOnce    sync.Once
	validationCounter metric.Int64Counter
)

func recordValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	validationOnce.Do(func() {
		counter, err := otel.Meter("auth-gateway").Int64Counter("config.validation.events")
		if err == nil {
			validationCounter = counter
		}
	})
	if validationCounter == nil {
		return
	}
	validationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

func classifyLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "validate config:"):
		return "validation"
	case strings.Contains(msg, "parse "):
		return "parse"
	default:
		return "load"
	}
}
