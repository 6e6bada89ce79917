package license

import (
	"context"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/shared/testutil"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const testHardwareID = "b8929923ce88651e688ddd7923f06b22f10f2675e45e7ff0bc71f27e99322d40"

type staticFingerprint string

func (f staticFingerprint) Compute() string { return string(f) }

type validatorFixture struct {
	dir     string
	primary string
	legacy  string
	key     *rsa.PrivateKey
	clock   *testutil.Clock
	v       *Validator
}

func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()
	dir := t.TempDir()
	key := testutil.RSAKey(t)
	f := &validatorFixture{
		dir:     dir,
		primary: filepath.Join(dir, "license.json"),
		legacy:  filepath.Join(dir, "legacy", "license.json"),
		key:     key,
		clock:   testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	pubPath := testutil.WritePublicKeyPEM(t, dir, "public.pem", key)
	logger, _ := testutil.NewTestLogger(t)
	f.v = NewValidator(staticFingerprint(testHardwareID), NewKeyResolver(pubPath, logger),
		[]string{f.primary, f.legacy}, logger).WithClock(f.clock.Now)
	return f
}

func (f *validatorFixture) install(t *testing.T, path string, p domain.LicensePayload) domain.SignedLicense {
	t.Helper()
	lic, err := SignLicense(p, f.key)
	require.NoError(t, err)
	require.NoError(t, WriteLicenseFile(path, lic))
	return lic
}

func validPayload() domain.LicensePayload {
	return domain.LicensePayload{
		Key:        "LIC-VALID-0001",
		Customer:   "Acme Muhasebe",
		HardwareID: testHardwareID,
		IssuedAt:   "2025-01-01T00:00:00.000Z",
		ExpiresAt:  strPtr("2026-01-01T00:00:00.000Z"),
	}
}

func TestValidator_Valid(t *testing.T) {
	f := newValidatorFixture(t)
	lic := f.install(t, f.primary, validPayload())

	res := f.v.ValidateInstalledLicense(context.Background())

	assert.True(t, res.Valid)
	assert.Empty(t, res.Reason)
	assert.Equal(t, testHardwareID, res.HardwareID)
	assert.Equal(t, f.primary, res.LicensePath)
	require.NotNil(t, res.License)
	assert.Equal(t, lic, *res.License)
}

func TestValidator_NoExpiryNeverExpires(t *testing.T) {
	f := newValidatorFixture(t)
	p := validPayload()
	p.ExpiresAt = nil
	f.install(t, f.primary, p)

	f.clock.Set(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC))
	res := f.v.ValidateInstalledLicense(context.Background())
	assert.True(t, res.Valid)
}

func TestValidator_LegacyLocation(t *testing.T) {
	f := newValidatorFixture(t)
	f.install(t, f.legacy, validPayload())

	res := f.v.ValidateInstalledLicense(context.Background())
	assert.True(t, res.Valid)
	assert.Equal(t, f.legacy, res.LicensePath)
}

func TestValidator_PrimaryWinsOverLegacy(t *testing.T) {
	f := newValidatorFixture(t)
	f.install(t, f.legacy, validPayload())
	p := validPayload()
	p.HardwareID = "someone-else"
	f.install(t, f.primary, p)

	res := f.v.ValidateInstalledLicense(context.Background())
	assert.False(t, res.Valid)
	assert.Equal(t, f.primary, res.LicensePath)
	assert.Equal(t, ReasonDeviceMismatch, res.Reason)
}

func TestValidator_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, f *validatorFixture)
		wantReason string
		wantCode   string
	}{
		{
			name:       "no file",
			setup:      func(*testing.T, *validatorFixture) {},
			wantReason: "license file not found",
			wantCode:   "NOT_FOUND",
		},
		{
			name: "malformed json",
			setup: func(t *testing.T, f *validatorFixture) {
				require.NoError(t, os.WriteFile(f.primary, []byte("{not json"), 0o644))
			},
			wantReason: "license file unreadable: parse license:",
			wantCode:   "PARSING",
		},
		{
			name: "missing fields",
			setup: func(t *testing.T, f *validatorFixture) {
				require.NoError(t, os.WriteFile(f.primary, []byte(`{"key":"K","issuedAt":"2025-01-01"}`), 0o644))
			},
			wantReason: "missing field(s): customer, hardwareId, signature",
			wantCode:   "VALIDATION",
		},
		{
			name: "tampered customer",
			setup: func(t *testing.T, f *validatorFixture) {
				lic := f.install(t, f.primary, validPayload())
				lic.Customer = "Someone Else"
				require.NoError(t, WriteLicenseFile(f.primary, lic))
			},
			wantReason: "invalid signature",
			wantCode:   "SIGNATURE",
		},
		{
			name: "extended expiry",
			setup: func(t *testing.T, f *validatorFixture) {
				lic := f.install(t, f.primary, validPayload())
				lic.ExpiresAt = strPtr("2099-01-01T00:00:00.000Z")
				require.NoError(t, WriteLicenseFile(f.primary, lic))
			},
			wantReason: "invalid signature",
			wantCode:   "SIGNATURE",
		},
		{
			name: "signed by another key",
			setup: func(t *testing.T, f *validatorFixture) {
				lic, err := SignLicense(validPayload(), testutil.OtherRSAKey(t))
				require.NoError(t, err)
				require.NoError(t, WriteLicenseFile(f.primary, lic))
			},
			wantReason: "invalid signature",
			wantCode:   "SIGNATURE",
		},
		{
			name: "different device",
			setup: func(t *testing.T, f *validatorFixture) {
				p := validPayload()
				p.HardwareID = "0000000000000000000000000000000000000000000000000000000000000000"
				f.install(t, f.primary, p)
			},
			wantReason: "license bound to a different device",
			wantCode:   "BINDING",
		},
		{
			name: "expired",
			setup: func(t *testing.T, f *validatorFixture) {
				p := validPayload()
				p.ExpiresAt = strPtr("2025-05-31T23:59:59.999Z")
				f.install(t, f.primary, p)
			},
			wantReason: "license expired",
			wantCode:   "EXPIRY",
		},
		{
			name: "expired date only",
			setup: func(t *testing.T, f *validatorFixture) {
				p := validPayload()
				p.ExpiresAt = strPtr("2025-06-01")
				f.install(t, f.primary, p)
			},
			wantReason: "license expired",
			wantCode:   "EXPIRY",
		},
		{
			name: "unparsable expiry",
			setup: func(t *testing.T, f *validatorFixture) {
				p := validPayload()
				p.ExpiresAt = strPtr("next year")
				f.install(t, f.primary, p)
			},
			wantReason: "license expired",
			wantCode:   "EXPIRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newValidatorFixture(t)
			tt.setup(t, f)

			res := f.v.ValidateInstalledLicense(context.Background())

			assert.False(t, res.Valid)
			assert.Contains(t, res.Reason, tt.wantReason)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Nil(t, res.License)
			assert.Equal(t, testHardwareID, res.HardwareID)
		})
	}
}

func TestValidator_BuiltinKeyFallback(t *testing.T) {
	f := newValidatorFixture(t)
	f.install(t, f.primary, validPayload())

	// No key file: the built-in key did not sign this license.
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(staticFingerprint(testHardwareID), NewKeyResolver(filepath.Join(f.dir, "absent.pem"), logger),
		[]string{f.primary}, logger).WithClock(f.clock.Now)

	res := v.ValidateInstalledLicense(context.Background())
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonInvalidSignature, res.Reason)
}

func TestValidator_ExpiryBoundary(t *testing.T) {
	f := newValidatorFixture(t)
	p := validPayload()
	p.ExpiresAt = strPtr("2025-06-01T12:00:00.000Z")
	f.install(t, f.primary, p)

	assert.True(t, f.v.ValidateInstalledLicense(context.Background()).Valid, "expiry equal to now is still valid")

	f.clock.Advance(time.Millisecond)
	assert.False(t, f.v.ValidateInstalledLicense(context.Background()).Valid)
}

func TestValidator_LogsMaskedKey(t *testing.T) {
	f := newValidatorFixture(t)
	f.install(t, f.primary, validPayload())
	logger, handler := testutil.NewTestLogger(t)
	f.v.logger = componentLogger(logger)

	f.v.ValidateInstalledLicense(context.Background())

	assert.True(t, handler.ContainsAttr("license_key", "LIC-****0001"))
	assert.False(t, handler.ContainsAttr("license_key", "LIC-VALID-0001"))
	assert.True(t, handler.ContainsAttr("component", "license"))
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-06-01T12:00:00.000Z", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"2025-06-01T12:00:00Z", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"2025-06-01T15:00:00+03:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"2025-06-01T12:00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"2025-06-01", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"01/06/2025", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
