package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics are the issuer's instruments. A nil *BusinessMetrics is
// accepted by every Record helper and records nothing.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	LicensesIssued   metric.Int64Counter
	LicensesRevoked  metric.Int64Counter
	IssuanceErrors   metric.Int64Counter
	KeyRotations     metric.Int64Counter
	IssuanceDuration metric.Float64Histogram
}

// CreateBusinessMetrics registers the issuer's instruments on meter.
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "HTTP requests served"},
		{&m.LicensesIssued, "licenses_issued_total", "Licenses generated"},
		{&m.LicensesRevoked, "licenses_revoked_total", "License records revoked"},
		{&m.IssuanceErrors, "issuance_errors_total", "Failed issuance operations"},
		{&m.KeyRotations, "key_rotations_total", "Signing key pairs generated"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = inst
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request latency"},
		{&m.IssuanceDuration, "issuance_operation_duration_seconds", "Issuance operation latency"},
	}
	for _, h := range histograms {
		inst, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", h.name, err)
		}
		*h.dst = inst
	}

	active, err := meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("HTTP requests in flight"))
	if err != nil {
		return nil, fmt.Errorf("updown counter http_active_requests: %w", err)
	}
	m.HTTPActiveRequests = active

	return m, nil
}

// RecordIssuanceMetrics records one issuance operation. errType is the
// error taxonomy type, empty on success.
func RecordIssuanceMetrics(ctx context.Context, m *BusinessMetrics, operation string, elapsed time.Duration, errType string) {
	if m == nil {
		return
	}

	status := "success"
	if errType != "" {
		status = "failure"
		m.IssuanceErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("type", errType)))
	}
	m.IssuanceDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status)))
}

func RecordLicenseIssued(ctx context.Context, m *BusinessMetrics, withExpiry bool) {
	if m != nil {
		m.LicensesIssued.Add(ctx, 1, metric.WithAttributes(attribute.Bool("expiring", withExpiry)))
	}
}

func RecordLicensesRevoked(ctx context.Context, m *BusinessMetrics, count int) {
	if m != nil && count > 0 {
		m.LicensesRevoked.Add(ctx, int64(count))
	}
}

func RecordKeyRotation(ctx context.Context, m *BusinessMetrics) {
	if m != nil {
		m.KeyRotations.Add(ctx, 1)
	}
}
