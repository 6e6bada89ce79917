package license

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TracerName = "edefter/license"
	MeterName  = "edefter/license"
)

// validatorMetrics counts license checks by outcome code
type validatorMetrics struct {
	checks   metric.Int64Counter
	failures metric.Int64Counter
}

func newValidatorMetrics() *validatorMetrics {
	meter := otel.Meter(MeterName)

	// A nil instrument is skipped in record.
	checks, _ := meter.Int64Counter("license_validation_checks_total",
		metric.WithDescription("Total number of installed-license validations"))
	failures, _ := meter.Int64Counter("license_validation_failures_total",
		metric.WithDescription("License validations that did not grant access, by reason code"))

	return &validatorMetrics{checks: checks, failures: failures}
}

func (m *validatorMetrics) record(ctx context.Context, code string, valid bool) {
	if m == nil {
		return
	}
	if m.checks != nil {
		m.checks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("valid", valid)))
	}
	if !valid && m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}
