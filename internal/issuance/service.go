package issuance

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/config"
	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/files"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/infrastructure"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/license"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const (
	TracerName = "edefter/issuance"

	// KeyBits is the RSA modulus size for new signing keys
	KeyBits = 2048

	isoMillis = "2006-01-02T15:04:05.000Z"
)

// Config locates the issuer's key material and output directories
type Config struct {
	DataDir          string
	LicenseDir       string
	PrivateKeyPath   string
	PublicKeyPath    string
	AppPublicKeyPath string
}

// ForHost lays the issuer out for one installation: data under the
// issuer data dir, and the application key copy where the host validator
// looks for its co-located public key.
func ForHost(host *config.Paths) Config {
	return Config{
		DataDir:          host.IssuerDataDir,
		AppPublicKeyPath: host.PublicKeyFile,
	}
}

// WithDefaults fills empty paths from DataDir. Without a host layout the
// application key copy stays under DataDir/app.
func (c Config) WithDefaults() Config {
	if c.LicenseDir == "" {
		c.LicenseDir = filepath.Join(c.DataDir, "licenses")
	}
	if c.PrivateKeyPath == "" {
		c.PrivateKeyPath = filepath.Join(c.DataDir, "keys", "private.pem")
	}
	if c.PublicKeyPath == "" {
		c.PublicKeyPath = filepath.Join(c.DataDir, "keys", "public.pem")
	}
	if c.AppPublicKeyPath == "" {
		c.AppPublicKeyPath = filepath.Join(c.DataDir, "app", "public.pem")
	}
	return c
}

// KeyPaths reports where InitKeys wrote the key pair
type KeyPaths struct {
	PrivateKeyPath   string `json:"privateKeyPath"`
	PublicKeyPath    string `json:"publicKeyPath"`
	AppPublicKeyPath string `json:"appPublicKeyPath"`
}

// GenerateRequest is the input to GenerateLicense. Key and ExpiresAt are
// optional.
type GenerateRequest struct {
	Key        string
	Customer   string
	HardwareID string
	ExpiresAt  string
}

// Service mints and revokes licenses
type Service struct {
	cfg     Config
	store   RecordStore
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewService creates an issuance service. metrics may be nil.
func NewService(cfg Config, store RecordStore, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg.WithDefaults(),
		store:   store,
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  logger.With(slog.String("component", "issuance")),
		tracer:  otel.Tracer(TracerName),
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Config returns the resolved paths
func (s *Service) Config() Config {
	return s.cfg
}

// finish records metrics and the span outcome for one operation
func (s *Service) finish(ctx context.Context, span trace.Span, op string, started time.Time, err error) {
	errType := ""
	if err != nil {
		errType = string(apperrors.TypeOf(err))
		if errType == "" {
			errType = "INTERNAL"
		}
		infrastructure.RecordError(ctx, err)
	}
	infrastructure.RecordIssuanceMetrics(ctx, s.metrics, op, time.Since(started), errType)
	span.End()
}

// InitKeys generates a fresh RSA key pair and writes the private key, the
// public key and the copy of the public key that ships with the application.
// Existing keys are overwritten; licenses signed with them stop verifying.
func (s *Service) InitKeys(ctx context.Context) (paths KeyPaths, err error) {
	ctx, span := s.tracer.Start(ctx, "issuance.init_keys")
	defer func(started time.Time) { s.finish(ctx, span, "init_keys", started, err) }(time.Now())

	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to generate key pair", err)
	}

	privPEM, err := license.EncodePrivateKeyPEM(key)
	if err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to encode private key", err)
	}
	pubPEM, err := license.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to encode public key", err)
	}

	if err := files.WriteAtomic(s.cfg.PrivateKeyPath, privPEM, 0o600); err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to write private key", err)
	}
	if err := files.WriteAtomic(s.cfg.PublicKeyPath, pubPEM, 0o644); err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to write public key", err)
	}
	if err := files.WriteAtomic(s.cfg.AppPublicKeyPath, pubPEM, 0o644); err != nil {
		return KeyPaths{}, apperrors.NewStorageError("failed to write application public key", err)
	}

	infrastructure.RecordKeyRotation(ctx, s.metrics)
	s.logger.InfoContext(ctx, "signing key pair generated",
		slog.String("action", "init_keys"),
		slog.String("private_key", s.cfg.PrivateKeyPath),
		slog.String("public_key", s.cfg.PublicKeyPath),
		slog.String("app_public_key", s.cfg.AppPublicKeyPath))

	return KeyPaths{
		PrivateKeyPath:   s.cfg.PrivateKeyPath,
		PublicKeyPath:    s.cfg.PublicKeyPath,
		AppPublicKeyPath: s.cfg.AppPublicKeyPath,
	}, nil
}

// GenerateLicense signs a license for req, writes it to the license
// directory and records it at the head of the ledger.
func (s *Service) GenerateLicense(ctx context.Context, req GenerateRequest) (rec *domain.LicenseRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "issuance.generate")
	defer func(started time.Time) { s.finish(ctx, span, "generate", started, err) }(time.Now())

	customer := strings.TrimSpace(req.Customer)
	hardwareID := strings.TrimSpace(req.HardwareID)
	if customer == "" {
		return nil, apperrors.NewAppValidationError("customer is required")
	}
	if hardwareID == "" {
		return nil, apperrors.NewAppValidationError("hardwareId is required")
	}
	if perr := license.CheckPortable(domain.LicensePayload{Customer: customer, HardwareID: hardwareID}); perr != nil {
		return nil, apperrors.NewAppValidationError(perr.Error())
	}

	var expiresAt *string
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		t, perr := license.ParseExpiry(raw)
		if perr != nil {
			return nil, apperrors.NewAppValidationError("expiresAt must be an ISO 8601 date")
		}
		formatted := t.UTC().Format(isoMillis)
		expiresAt = &formatted
	}

	privateKey, err := s.loadPrivateKey()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := NormalizeKey(req.Key)
	if key == "" {
		key = fmt.Sprintf("LIC-%d", now.UnixMilli())
	}

	payload := domain.LicensePayload{
		Key:        key,
		Customer:   customer,
		HardwareID: hardwareID,
		IssuedAt:   now.Format(isoMillis),
		ExpiresAt:  expiresAt,
	}
	signed, err := license.SignLicense(payload, privateKey)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to sign license", err)
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load license records", err)
	}

	// The record id keeps file names unique when the same key is issued
	// twice within one millisecond.
	id := s.newID()
	fileName := fmt.Sprintf("license-%s-%d-%s.json", key, now.UnixMilli(), id)
	filePath := filepath.Join(s.cfg.LicenseDir, fileName)
	if err := license.WriteLicenseFile(filePath, signed); err != nil {
		return nil, apperrors.NewStorageError("failed to write license file", err)
	}

	record := domain.LicenseRecord{
		ID:         id,
		Key:        key,
		Customer:   customer,
		HardwareID: hardwareID,
		IssuedAt:   payload.IssuedAt,
		ExpiresAt:  expiresAt,
		Status:     domain.RecordStatusActive,
		FileName:   fileName,
		FilePath:   filePath,
	}
	records = append([]domain.LicenseRecord{record}, records...)

	if err := s.store.Save(ctx, records); err != nil {
		if rmErr := files.RemoveIfExists(filePath); rmErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove orphaned license file",
				slog.String("action", "generate"),
				slog.String("path", filePath),
				slog.String("error", rmErr.Error()))
		}
		return nil, apperrors.NewStorageError("failed to save license records", err)
	}

	infrastructure.RecordLicenseIssued(ctx, s.metrics, expiresAt != nil)
	span.SetAttributes(attribute.String("license.key", license.MaskKey(key)))
	s.logger.InfoContext(ctx, "license generated",
		slog.String("action", "generate"),
		slog.String("license_key", license.MaskKey(key)),
		slog.String("customer", customer),
		slog.Bool("expiring", expiresAt != nil),
		slog.String("file", fileName))

	return &record, nil
}

// RevokeLicense marks every active record with key as revoked. When no
// record has the key, the ledger is left untouched.
func (s *Service) RevokeLicense(ctx context.Context, key string) (err error) {
	ctx, span := s.tracer.Start(ctx, "issuance.revoke")
	defer func(started time.Time) { s.finish(ctx, span, "revoke", started, err) }(time.Now())

	key = NormalizeKey(key)
	if key == "" {
		return apperrors.NewAppValidationError("key is required")
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		return apperrors.NewStorageError("failed to load license records", err)
	}

	found, revoked := false, 0
	revokedAt := s.now().UTC().Format(isoMillis)
	for i := range records {
		if records[i].Key != key {
			continue
		}
		found = true
		if records[i].IsActive() {
			records[i].Status = domain.RecordStatusRevoked
			records[i].RevokedAt = &revokedAt
			revoked++
		}
	}

	if !found {
		return apperrors.NewNotFoundError("license record not found")
	}
	if revoked == 0 {
		return nil
	}

	if err := s.store.Save(ctx, records); err != nil {
		return apperrors.NewStorageError("failed to save license records", err)
	}

	infrastructure.RecordLicensesRevoked(ctx, s.metrics, revoked)
	s.logger.InfoContext(ctx, "license revoked",
		slog.String("action", "revoke"),
		slog.String("license_key", license.MaskKey(key)),
		slog.Int("records", revoked))
	return nil
}

// ListRecords returns the ledger, most recent first
func (s *Service) ListRecords(ctx context.Context) ([]domain.LicenseRecord, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load license records", err)
	}
	return records, nil
}

// Status reports whether a signing key is present and where output goes
func (s *Service) Status(_ context.Context) domain.IssuerStatus {
	return domain.IssuerStatus{
		HasPrivateKey: files.FileExists(s.cfg.PrivateKeyPath),
		DataDir:       s.cfg.DataDir,
		LicenseDir:    s.cfg.LicenseDir,
	}
}

func (s *Service) loadPrivateKey() (*rsa.PrivateKey, error) {
	key, err := license.LoadPrivateKey(s.cfg.PrivateKeyPath)
	if err == nil {
		return key, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewPreconditionError("private key not found, initialize keys first")
	}
	return nil, apperrors.NewAppError(apperrors.ErrTypePrecondition, "private key unreadable", err)
}

// NormalizeKey uppercases key and drops everything outside [A-Z0-9-]
func NormalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(key)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
