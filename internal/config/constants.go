package config

// Application constants
const (
	AppName   = "E-Defter Otomasyon"
	AppVendor = "E-Defter Otomasyon"

	// AppDirName is the per-user directory holding license and trial state
	AppDirName = "edefter-otomasyon"

	// License files
	LicenseFileName   = "license.json"
	PublicKeyFileName = "public.pem"

	// Trial state. The mirror name is deliberately unremarkable.
	TrialFileName       = "trial.json"
	TrialMirrorFileName = ".cache-index"

	// Issuer defaults
	DefaultServerHost  = "127.0.0.1"
	DefaultServerPort  = 8765
	DefaultIssuerDir   = "issuer-data"
	DefaultRecordsFile = "records.json"
	DefaultLogFile     = "logs/edefter.log"
	DefaultRateLimit   = 20 // requests per second
	DefaultBurstSize   = 40
	DefaultPurchaseURL = "https://edefterotomasyon.com/satin-al"
	DefaultTrialSecret = "edefter-otomasyon/trial/v1"
	HealthEndpoint     = "/api/health"
	MetricsEndpoint    = "/metrics"
)
