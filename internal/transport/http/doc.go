// Package http implements the issuer's local admin API on top of chi.
//
// Handlers stay thin: decode and validate the body, call the issuance
// service, render JSON. Every failure goes through errors.ErrorHandler and
// leaves as an RFC 7807 problem document (application/problem+json) whose
// "detail" and "error" members carry the human-readable message:
//
//	{
//	    "type": "/errors/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "license record not found",
//	    "error": "license record not found",
//	    "error_code": "NOT_FOUND",
//	    "instance": "/api/revoke"
//	}
//
// Routes:
//
//	GET  /api/status          issuer key and directory state
//	POST /api/init-keys       generate a fresh RSA key pair
//	GET  /api/records         ledger, most recent first
//	GET  /api/records/export  ledger as XLSX, or CSV with ?format=csv
//	POST /api/generate        sign and record a license (201)
//	POST /api/revoke          mark every active record for a key revoked
//	GET  /api/health          liveness
//	GET  /api/health/ready    readiness (signing key present, ledger readable)
//	GET  /api/version         build information
package http
