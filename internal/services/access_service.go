package services

import (
	"context"
	"log/slog"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// LicenseValidator checks the installed license
type LicenseValidator interface {
	ValidateInstalledLicense(ctx context.Context) domain.ValidationResult
}

// TrialEvaluator runs the per-launch trial check
type TrialEvaluator interface {
	CheckTrial(ctx context.Context) (bool, *domain.Notice)
	GetTrialInfo(ctx context.Context) domain.TrialInfo
}

// AccessService decides whether the host application may run
type AccessService struct {
	license LicenseValidator
	trial   TrialEvaluator
	logger  *slog.Logger
}

// NewAccessService creates an access gate
func NewAccessService(license LicenseValidator, trial TrialEvaluator, logger *slog.Logger) *AccessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessService{
		license: license,
		trial:   trial,
		logger:  logger.With(slog.String("component", "access")),
	}
}

// Evaluate validates the license and, only when that fails, consults the
// trial. The trial is not touched while a valid license is installed.
func (s *AccessService) Evaluate(ctx context.Context) domain.AccessDecision {
	lic := s.license.ValidateInstalledLicense(ctx)
	if lic.Valid {
		s.logger.InfoContext(ctx, "access granted by license", slog.String("mode", string(domain.AccessLicensed)))
		return domain.AccessDecision{
			Granted: true,
			Mode:    domain.AccessLicensed,
			License: lic,
		}
	}

	ok, notice := s.trial.CheckTrial(ctx)
	info := s.trial.GetTrialInfo(ctx)

	decision := domain.AccessDecision{
		Granted: ok,
		Mode:    domain.AccessTrial,
		License: lic,
		Trial:   &info,
		Notice:  notice,
	}
	if !ok {
		decision.Mode = domain.AccessBlocked
	}

	s.logger.InfoContext(ctx, "access decided by trial",
		slog.String("mode", string(decision.Mode)),
		slog.String("license_reason", lic.Reason),
		slog.Int("remaining_days", info.RemainingDays))
	return decision
}
