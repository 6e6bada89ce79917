// Package domain contains the shared models of the license and trial core.
// These types are the single source of truth for the host, the issuer and
// their HTTP surfaces.
package domain

// LicensePayload is the signed portion of a license. Field order here is the
// canonical order used for signing.
type LicensePayload struct {
	Key        string  `json:"key"`
	Customer   string  `json:"customer"`
	HardwareID string  `json:"hardwareId"`
	IssuedAt   string  `json:"issuedAt"`
	ExpiresAt  *string `json:"expiresAt"`
}

// SignedLicense is the on-disk license document: the payload plus a base64
// RSA signature over its canonical form.
type SignedLicense struct {
	Key        string  `json:"key"`
	Customer   string  `json:"customer"`
	HardwareID string  `json:"hardwareId"`
	IssuedAt   string  `json:"issuedAt"`
	ExpiresAt  *string `json:"expiresAt"`
	Signature  string  `json:"signature"`
}

// Payload strips the signature.
func (l SignedLicense) Payload() LicensePayload {
	return LicensePayload{
		Key:        l.Key,
		Customer:   l.Customer,
		HardwareID: l.HardwareID,
		IssuedAt:   l.IssuedAt,
		ExpiresAt:  l.ExpiresAt,
	}
}

// HasExpiry reports whether the license carries a non-empty expiry.
func (l SignedLicense) HasExpiry() bool {
	return l.ExpiresAt != nil && *l.ExpiresAt != ""
}

// RecordStatus is the issuer-side state of a license record
type RecordStatus string

const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusRevoked RecordStatus = "revoked"
)

// LicenseRecord is the issuer's ledger entry for one generated license.
// Records are never deleted; revocation only flips Status.
type LicenseRecord struct {
	ID         string       `json:"id"`
	Key        string       `json:"key"`
	Customer   string       `json:"customer"`
	HardwareID string       `json:"hardwareId"`
	IssuedAt   string       `json:"issuedAt"`
	ExpiresAt  *string      `json:"expiresAt"`
	Status     RecordStatus `json:"status"`
	RevokedAt  *string      `json:"revokedAt,omitempty"`
	FileName   string       `json:"fileName"`
	FilePath   string       `json:"filePath"`
}

// IsActive reports whether the record has not been revoked
func (r LicenseRecord) IsActive() bool {
	return r.Status == RecordStatusActive
}

// ValidationResult is the outcome of checking the installed license.
type ValidationResult struct {
	Valid       bool           `json:"valid"`
	Reason      string         `json:"reason,omitempty"`
	Code        string         `json:"code,omitempty"`
	HardwareID  string         `json:"hardwareId"`
	LicensePath string         `json:"licensePath,omitempty"`
	License     *SignedLicense `json:"license,omitempty"`
}

// TrialRecord is the persisted evaluation state of one installation.
type TrialRecord struct {
	HardwareID     string `json:"hardwareId"`
	FirstRunDate   int64  `json:"firstRunDate"`
	IsTrialVersion bool   `json:"isTrialVersion"`
	// LastSeenDate only moves forward; it bounds clock rollback.
	LastSeenDate int64 `json:"lastSeenDate,omitempty"`
}

// TrialInfo is a read-only snapshot of trial state for display.
type TrialInfo struct {
	IsTrialVersion bool  `json:"isTrialVersion"`
	FirstRunDate   int64 `json:"firstRunDate"`
	RemainingDays  int   `json:"remainingDays"`
	IsExpired      bool  `json:"isExpired"`
	TotalDays      int   `json:"totalDays"`
}

// NoticeKind identifies which user-facing notice the host should show
type NoticeKind string

const (
	NoticeTrialExpired NoticeKind = "trial_expired"
	NoticeTrialWarning NoticeKind = "trial_warning"
)

// NoticeAction is a button the host renders alongside a notice.
type NoticeAction string

const (
	ActionPurchase NoticeAction = "purchase"
	ActionExit     NoticeAction = "exit"
	ActionContinue NoticeAction = "continue"
)

// Notice is a user-facing message produced by trial checks. The host owns
// the dialog transport; this is only the content.
type Notice struct {
	Kind        NoticeKind     `json:"kind"`
	Blocking    bool           `json:"blocking"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	PurchaseURL string         `json:"purchaseUrl,omitempty"`
	Actions     []NoticeAction `json:"actions"`
}

// AccessMode says which mechanism granted or denied access
type AccessMode string

const (
	AccessLicensed AccessMode = "licensed"
	AccessTrial    AccessMode = "trial"
	AccessBlocked  AccessMode = "blocked"
)

// AccessDecision combines license and trial verdicts. A valid license always
// wins; otherwise trial state alone decides.
type AccessDecision struct {
	Granted bool             `json:"granted"`
	Mode    AccessMode       `json:"mode"`
	License ValidationResult `json:"license"`
	Trial   *TrialInfo       `json:"trial,omitempty"`
	Notice  *Notice          `json:"notice,omitempty"`
}

// IssuerStatus describes the issuer's key and directory state.
type IssuerStatus struct {
	HasPrivateKey bool   `json:"hasPrivateKey"`
	DataDir       string `json:"dataDir"`
	LicenseDir    string `json:"licenseDir"`
}
