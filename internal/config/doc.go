// Package config loads the configuration shared by the issuer service and
// the host-side tools, and resolves the file locations of an installation.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. YAML file: $EDEFTER_CONFIG, ./edefter.yaml, ./configs/edefter.yaml or
//	   edefter.yaml next to the executable
//	3. Environment variables with the EDEFTER_ prefix
//
// Environment variables follow the struct layout:
//
//	EDEFTER_SERVER_PORT=8765
//	EDEFTER_SECURITY_RATE_LIMIT_RPS=20
//	EDEFTER_LOGGING_LEVEL=debug
//	EDEFTER_ISSUER_DATA_DIR=/srv/edefter-issuer
//	EDEFTER_TRIAL_PURCHASE_URL=https://...
//
// # Paths
//
// Paths places the installed license in the per-user config directory
// (with a legacy fallback next to the executable) and splits the trial
// record across the config and cache directories.
package config
