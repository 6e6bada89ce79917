package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// IssuerProbe is the part of the issuance service health checks look at
type IssuerProbe interface {
	Status(ctx context.Context) domain.IssuerStatus
	ListRecords(ctx context.Context) ([]domain.LicenseRecord, error)
}

// HealthService provides health check functionality
type HealthService struct {
	build     contracts.VersionInfo
	issuer    IssuerProbe
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VersionReport is the GET /api/version body
type VersionReport struct {
	contracts.VersionInfo
	StartTime time.Time `json:"start_time"`
	Uptime    float64   `json:"uptime_seconds"`
}

// NewHealthService creates a new health service for the build described by
// build.
func NewHealthService(build contracts.VersionInfo, issuer IssuerProbe, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		build:     build,
		issuer:    issuer,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health")),
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(_ context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the issuer can sign licenses and read its
// ledger. A missing key is "not_ready": generation would fail.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services: map[string]ServiceHealth{
			"signing_key":  hs.checkSigningKey(ctx),
			"record_store": hs.checkRecordStore(ctx),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	hs.logger.DebugContext(ctx, "readiness check completed", slog.String("status", status.Status))
	return status
}

// Version reports build metadata and uptime
func (hs *HealthService) Version() VersionReport {
	return VersionReport{
		VersionInfo: hs.build,
		StartTime:   hs.startTime.UTC(),
		Uptime:      time.Since(hs.startTime).Seconds(),
	}
}

func (hs *HealthService) checkSigningKey(ctx context.Context) ServiceHealth {
	if !hs.issuer.Status(ctx).HasPrivateKey {
		return ServiceHealth{Status: "not_ready", Message: "signing key not initialized"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkRecordStore(ctx context.Context) ServiceHealth {
	records, err := hs.issuer.ListRecords(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d records", len(records))}
}
