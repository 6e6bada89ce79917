package license

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/files"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// ReadLicenseFile reads and parses a license document. Field presence is
// not checked here; see Validator.
func ReadLicenseFile(path string) (*domain.SignedLicense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lic domain.SignedLicense
	if err := json.Unmarshal(data, &lic); err != nil {
		return nil, fmt.Errorf("parse license: %w", err)
	}
	return &lic, nil
}

// WriteLicenseFile writes lic as indented JSON
func WriteLicenseFile(path string, lic domain.SignedLicense) error {
	return files.WriteJSONAtomic(path, lic, 0o644)
}
