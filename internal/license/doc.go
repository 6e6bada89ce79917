// Package license signs, stores and verifies device-bound licenses.
//
// A license is a small JSON document: key, customer, hardwareId, issuedAt,
// an optional expiresAt and a base64 RSA-SHA256 (PKCS#1 v1.5) signature over
// the canonical JSON of the other five fields. Canonical means fixed field
// order, no whitespace and no HTML escaping, so issuer and host agree on the
// exact bytes.
//
// # Validation
//
// Validator.ValidateInstalledLicense stops at the first failing check:
//
//	1. locate the file (primary path, then legacy path)
//	2. parse it
//	3. required fields present
//	4. signature verifies against the resolved public key
//	5. hardwareId equals the current fingerprint
//	6. expiresAt, if set, is not in the past
//
// The public key comes from a file next to the executable when present and
// usable; otherwise the key compiled into the binary is used.
package license
