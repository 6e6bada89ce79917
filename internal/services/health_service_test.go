package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

type stubIssuer struct {
	hasKey  bool
	records []domain.LicenseRecord
	err     error
}

func (s stubIssuer) Status(context.Context) domain.IssuerStatus {
	return domain.IssuerStatus{HasPrivateKey: s.hasKey}
}

func (s stubIssuer) ListRecords(context.Context) ([]domain.LicenseRecord, error) {
	return s.records, s.err
}

func TestHealthService_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		issuer stubIssuer
		want   string
		key    string
		store  string
	}{
		{"ready", stubIssuer{hasKey: true, records: []domain.LicenseRecord{{Key: "A"}}}, "ready", "ready", "ready"},
		{"no key", stubIssuer{}, "not_ready", "not_ready", "ready"},
		{"store broken", stubIssuer{hasKey: true, err: errors.New("read records: unexpected EOF")}, "not_ready", "ready", "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := NewHealthService(contracts.VersionInfo{Version: "1.2.0"}, tt.issuer, nil)
			st := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.want, st.Status)
			assert.Equal(t, tt.key, st.Services["signing_key"].Status)
			assert.Equal(t, tt.store, st.Services["record_store"].Status)
		})
	}
}

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService(contracts.VersionInfo{Version: "1.2.0", BuildTime: "2025-01-01"}, stubIssuer{}, nil)
	st := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", st.Status)
	assert.Equal(t, "1.2.0", st.Version)
	assert.Contains(t, st.Runtime, "go_version")

	v := hs.Version()
	assert.Equal(t, "2025-01-01", v.BuildTime)
	assert.GreaterOrEqual(t, v.Uptime, 0.0)
}
