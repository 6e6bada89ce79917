package license

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/files"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// Reasons reported by ValidateInstalledLicense. Hosts match on these.
const (
	ReasonNotFound         = "license file not found"
	ReasonUnreadable       = "license file unreadable"
	ReasonMissingFields    = "missing field(s)"
	ReasonInvalidSignature = "invalid signature"
	ReasonDeviceMismatch   = "license bound to a different device"
	ReasonExpired          = "license expired"
)

// FingerprintSource yields the current machine's hardware id
type FingerprintSource interface {
	Compute() string
}

// PublicKeyResolver yields the key licenses are verified against
type PublicKeyResolver interface {
	Resolve() (*rsa.PublicKey, KeySource, error)
}

// Validator checks the installed license file. It holds no state between
// calls: every validation re-reads the file and the key.
type Validator struct {
	fingerprint FingerprintSource
	keys        PublicKeyResolver
	candidates  []string
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *validatorMetrics
}

// NewValidator creates a validator looking for the license at each of
// candidates in order (primary location first, then legacy).
func NewValidator(fp FingerprintSource, keys PublicKeyResolver, candidates []string, logger *slog.Logger) *Validator {
	return &Validator{
		fingerprint: fp,
		keys:        keys,
		candidates:  candidates,
		now:         time.Now,
		logger:      componentLogger(logger),
		tracer:      otel.Tracer(TracerName),
		metrics:     newValidatorMetrics(),
	}
}

// WithClock replaces the time source used for expiry checks
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// ValidateInstalledLicense runs the ordered checks and stops at the first
// failure: locate, read, required fields, signature, device binding, expiry.
func (v *Validator) ValidateInstalledLicense(ctx context.Context) domain.ValidationResult {
	ctx, span := v.tracer.Start(ctx, "license.validate")
	defer span.End()

	result := v.validate(ctx)

	span.SetAttributes(
		attribute.Bool("license.valid", result.Valid),
		attribute.String("license.code", result.Code),
	)
	v.metrics.record(ctx, result.Code, result.Valid)

	attrs := []any{
		slog.String("action", "validate"),
		slog.Bool("valid", result.Valid),
		slog.String("hardware_id", maskHardwareID(result.HardwareID)),
		slog.String("path", result.LicensePath),
	}
	if result.Valid {
		v.logger.InfoContext(ctx, "license valid", append(attrs, slog.String("license_key", MaskKey(result.License.Key)))...)
	} else {
		v.logger.InfoContext(ctx, "license not valid", append(attrs, slog.String("reason", result.Reason))...)
	}
	return result
}

func (v *Validator) validate(ctx context.Context) domain.ValidationResult {
	hardwareID := v.fingerprint.Compute()
	result := domain.ValidationResult{HardwareID: hardwareID}

	path := files.FirstExisting(v.candidates...)
	if path == "" {
		return fail(result, apperrors.ErrTypeNotFound, ReasonNotFound)
	}
	result.LicensePath = path

	lic, err := ReadLicenseFile(path)
	if err != nil {
		return fail(result, apperrors.ErrTypeParsing, fmt.Sprintf("%s: %v", ReasonUnreadable, err))
	}

	if missing := missingFields(lic); len(missing) > 0 {
		return fail(result, apperrors.ErrTypeValidation, fmt.Sprintf("%s: %s", ReasonMissingFields, strings.Join(missing, ", ")))
	}

	key, source, err := v.keys.Resolve()
	if err != nil {
		v.logger.ErrorContext(ctx, "no usable public key",
			slog.String("action", "resolve_key"),
			slog.String("error", err.Error()))
		return fail(result, apperrors.ErrTypeSignature, ReasonInvalidSignature)
	}
	if !Verify(lic.Payload(), lic.Signature, key) {
		v.logger.WarnContext(ctx, "license signature rejected",
			slog.String("action", "verify"),
			slog.String("key_source", string(source)))
		return fail(result, apperrors.ErrTypeSignature, ReasonInvalidSignature)
	}

	if lic.HardwareID != hardwareID {
		return fail(result, apperrors.ErrTypeBinding, ReasonDeviceMismatch)
	}

	if lic.HasExpiry() {
		exp, err := ParseExpiry(*lic.ExpiresAt)
		if err != nil || exp.Before(v.now()) {
			return fail(result, apperrors.ErrTypeExpiry, ReasonExpired)
		}
	}

	result.Valid = true
	result.License = lic
	return result
}

func fail(r domain.ValidationResult, code apperrors.ErrorType, reason string) domain.ValidationResult {
	r.Valid = false
	r.Code = string(code)
	r.Reason = reason
	return r
}

// missingFields lists required fields that are absent or empty, in
// document order.
func missingFields(lic *domain.SignedLicense) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"key", lic.Key},
		{"customer", lic.Customer},
		{"hardwareId", lic.HardwareID},
		{"issuedAt", lic.IssuedAt},
		{"signature", lic.Signature},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseExpiry accepts RFC 3339 timestamps (with or without fraction or
// zone) and plain dates. Zoneless values are UTC.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized expiry format: " + s)
}
