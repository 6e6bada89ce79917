// Package api contains the request and response contracts of the issuer HTTP API.
package api

import (
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// GenerateLicenseRequest is the body of POST /api/generate.
// Key is optional; a blank key is replaced by a generated one.
type GenerateLicenseRequest struct {
	Key        string `json:"key" validate:"omitempty,max=64"`
	Customer   string `json:"customer" validate:"required,max=256"`
	HardwareID string `json:"hardwareId" validate:"required,max=256"`
	ExpiresAt  string `json:"expiresAt" validate:"omitempty,iso8601"`
}

// RevokeLicenseRequest is the body of POST /api/revoke.
type RevokeLicenseRequest struct {
	Key string `json:"key" validate:"required"`
}

// RecordsResponse wraps the record ledger
type RecordsResponse struct {
	Records []domain.LicenseRecord `json:"records"`
}

// KeyPathsResponse reports where InitKeys wrote key material.
type KeyPathsResponse struct {
	PrivateKeyPath   string `json:"privateKeyPath"`
	PublicKeyPath    string `json:"publicKeyPath"`
	AppPublicKeyPath string `json:"appPublicKeyPath"`
}

// SuccessResponse is returned by mutations without a body of their own
type SuccessResponse struct {
	Success bool `json:"success"`
}
