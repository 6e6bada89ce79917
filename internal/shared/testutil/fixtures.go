package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var (
	keyOnce sync.Once
	keyPair *rsa.PrivateKey
	keyErr  error
)

// RSAKey returns a 2048-bit key shared across the test binary. Generating
// one per test makes the suites noticeably slower.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		keyPair, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keyErr != nil {
		t.Fatalf("generate rsa key: %v", keyErr)
	}
	return keyPair
}

// OtherRSAKey returns a fresh key, distinct from RSAKey.
func OtherRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

// WritePublicKeyPEM writes key's public half as a PKIX PEM file in dir.
func WritePublicKeyPEM(t testing.TB, dir, name string, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return path
}

// StaticProber satisfies the fingerprint prober interface with fixed values.
type StaticProber struct {
	CPU     string
	Host    string
	OS      string
	CPUArch string
	GUID    string
}

func (p StaticProber) CPUModel() string    { return p.CPU }
func (p StaticProber) Hostname() string    { return p.Host }
func (p StaticProber) Platform() string    { return p.OS }
func (p StaticProber) Arch() string        { return p.CPUArch }
func (p StaticProber) MachineGUID() string { return p.GUID }

// Clock is a settable time source for injection as func() time.Time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward (or back, for negative d)
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to t
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
