// Package services holds the small orchestration layer that sits between
// the license/trial/issuance components and their callers.
//
// AccessService applies the host precedence rule: a valid license always
// grants access; without one, trial state alone decides. HealthService
// reports issuer liveness and readiness for the HTTP surface.
//
// Services take their collaborators as interfaces and a *slog.Logger in the
// constructor:
//
//	svc := services.NewAccessService(validator, trialManager, logger)
//	decision := svc.Evaluate(ctx)
package services
