package license

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// canonicalPayload fixes the key order of the signed document. Do not
// reorder these fields: every license in the field was signed this way.
type canonicalPayload struct {
	Key        string  `json:"key"`
	Customer   string  `json:"customer"`
	HardwareID string  `json:"hardwareId"`
	IssuedAt   string  `json:"issuedAt"`
	ExpiresAt  *string `json:"expiresAt"`
}

// Canonicalize returns the exact byte sequence that is signed: compact JSON,
// fixed key order, no HTML escaping, no trailing newline, and a null
// expiresAt when the license never expires. U+2028 and U+2029 are written
// as \u2028 and \u2029, and invalid UTF-8 becomes U+FFFD; other encoders
// emit those raw, so issued payloads must pass CheckPortable.
func Canonicalize(p domain.LicensePayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonicalPayload(p)); err != nil {
		return nil, fmt.Errorf("encode canonical payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CheckPortable rejects payload text whose canonical form differs between
// JSON encoders: invalid UTF-8 and the line/paragraph separators.
func CheckPortable(p domain.LicensePayload) error {
	fields := []struct{ name, value string }{
		{"key", p.Key},
		{"customer", p.Customer},
		{"hardwareId", p.HardwareID},
		{"issuedAt", p.IssuedAt},
	}
	if p.ExpiresAt != nil {
		fields = append(fields, struct{ name, value string }{"expiresAt", *p.ExpiresAt})
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%s is not valid UTF-8", f.name)
		}
		if strings.ContainsAny(f.value, "\u2028\u2029") {
			return fmt.Errorf("%s contains a line or paragraph separator", f.name)
		}
	}
	return nil
}

// Sign produces the base64 RSASSA-PKCS1-v1_5 SHA-256 signature of the
// canonical payload.
func Sign(p domain.LicensePayload, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", errors.New("sign license: nil private key")
	}
	data, err := Canonicalize(p)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign license: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether signature is valid for p under key. Malformed
// input of any kind yields false, never a panic.
func Verify(p domain.LicensePayload, signature string, key *rsa.PublicKey) bool {
	if key == nil || signature == "" {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	data, err := Canonicalize(p)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
}

// SignLicense signs p and returns the complete license document
func SignLicense(p domain.LicensePayload, key *rsa.PrivateKey) (domain.SignedLicense, error) {
	sig, err := Sign(p, key)
	if err != nil {
		return domain.SignedLicense{}, err
	}
	return domain.SignedLicense{
		Key:        p.Key,
		Customer:   p.Customer,
		HardwareID: p.HardwareID,
		IssuedAt:   p.IssuedAt,
		ExpiresAt:  p.ExpiresAt,
		Signature:  sig,
	}, nil
}
