package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "auth-gateway"

type gatewayMetrics struct {
	loginCounter      metric.Int64Counter
	refreshCounter    metric.Int64Counter
	logoutCounter     metric.Int64Counter
	introspectCounter metric.Int64Counter
	lockoutCounter    metric.Int64Counter
	tokenCounter      metric.Int64Counter
	repoCounter       metric.Int64Counter
	rateLimitCounter  metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *gatewayMetrics
)

func gateway() *gatewayMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		m := &gatewayMetrics{}
		m.loginCounter, _ = meter.Int64Counter("auth.login.attempts")
		m.refreshCounter, _ = meter.Int64Counter("auth.refresh.attempts")
		m.logoutCounter, _ = meter.Int64Counter("auth.logout.requests")
		m.introspectCounter, _ = meter.Int64Counter("auth.introspect.requests")
		m.lockoutCounter, _ = meter.Int64Counter("auth.lockouts.triggered")
		m.tokenCounter, _ = meter.Int64Counter("auth.token.validations")
		m.repoCounter, _ = meter.Int64Counter("repository.operations")
		m.rateLimitCounter, _ = meter.Int64Counter("http.rate_limit.decisions")
		metrics = m
	})
	return metrics
}

func RecordLoginAttempt(ctx context.Context, outcome string) {
	m := gateway()
	if m.loginCounter == nil {
		return
	}
	m.loginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRefreshAttempt(ctx context.Context, outcome string) {
	m := gateway()
	if m.refreshCounter == nil {
		return
	}
	m.refreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordLogout(ctx context.Context, scope, outcome string) {
	m := gateway()
	if m.logoutCounter == nil {
		return
	}
	m.logoutCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

func RecordIntrospection(ctx context.Context, outcome string) {
	m := gateway()
	if m.introspectCounter == nil {
		return
	}
	m.introspectCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordLockout(ctx context.Context, reason string) {
	m := gateway()
	if m.lockoutCounter == nil {
		return
	}
	m.lockoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func RecordTokenValidation(ctx context.Context, kind, outcome string) {
	m := gateway()
	if m.tokenCounter == nil {
		return
	}
	m.tokenCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := gateway()
	if m.repoCounter == nil {
		return
	}
	m.repoCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	m := gateway()
	if m.rateLimitCounter == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("decision", decision),
	))
}
