package license

import (
	"crypto/rsa"
	"crypto/x509"
	_ "embed"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

//go:embed builtin_public_key.pem
var builtinPublicKeyPEM []byte

// KeySource says where a resolved public key came from
type KeySource string

const (
	KeySourceFile    KeySource = "file"
	KeySourceBuiltin KeySource = "builtin"
)

// EncodePrivateKeyPEM encodes key as a PKCS#8 "PRIVATE KEY" block
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" block
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM accepts PKCS#8 and PKCS#1 encoded RSA private keys
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// ParsePublicKeyPEM accepts PKIX and PKCS#1 encoded RSA public keys
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported public key type %T", key)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// LoadPrivateKey reads and parses a PEM private key file
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKeyPEM(data)
}

// LoadPublicKey reads and parses a PEM public key file
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePublicKeyPEM(data)
}

// BuiltinPublicKey returns the verification key compiled into the binary
func BuiltinPublicKey() (*rsa.PublicKey, error) {
	return ParsePublicKeyPEM(builtinPublicKeyPEM)
}

// KeyResolver finds the verification key: a public key file next to the
// executable wins, otherwise the built-in key is used.
type KeyResolver struct {
	path    string
	builtin func() (*rsa.PublicKey, error)
	logger  *slog.Logger
}

// NewKeyResolver creates a resolver preferring the key file at path.
// An empty path always resolves to the built-in key.
func NewKeyResolver(path string, logger *slog.Logger) *KeyResolver {
	return &KeyResolver{
		path:    path,
		builtin: BuiltinPublicKey,
		logger:  componentLogger(logger),
	}
}

// Resolve reads the key fresh on every call so a replaced key file takes
// effect without a restart.
func (r *KeyResolver) Resolve() (*rsa.PublicKey, KeySource, error) {
	if r.path != "" {
		key, err := LoadPublicKey(r.path)
		if err == nil {
			return key, KeySourceFile, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("public key file unusable, falling back to built-in key",
				slog.String("action", "resolve_key"),
				slog.String("path", r.path),
				slog.String("error", err.Error()))
		}
	}

	key, err := r.builtin()
	if err != nil {
		return nil, "", fmt.Errorf("built-in public key: %w", err)
	}
	return key, KeySourceBuiltin, nil
}
