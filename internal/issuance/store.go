package issuance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/files"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/infrastructure"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// RecordStore persists the whole ledger. Records are kept most recent first.
type RecordStore interface {
	Load(ctx context.Context) ([]domain.LicenseRecord, error)
	Save(ctx context.Context, records []domain.LicenseRecord) error
}

type recordsFile struct {
	Records []domain.LicenseRecord `json:"records"`
}

// JSONRecordStore keeps the ledger in a single JSON document that is
// rewritten on every change. Concurrent writers from separate processes can
// lose updates.
type JSONRecordStore struct {
	path string
}

// NewJSONRecordStore creates a store backed by path
func NewJSONRecordStore(path string) *JSONRecordStore {
	return &JSONRecordStore{path: path}
}

// Path returns the backing file
func (s *JSONRecordStore) Path() string {
	return s.path
}

// Load returns an empty ledger when the file does not exist yet
func (s *JSONRecordStore) Load(_ context.Context) ([]domain.LicenseRecord, error) {
	var f recordsFile
	if err := files.ReadJSON(s.path, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.LicenseRecord{}, nil
		}
		return nil, fmt.Errorf("read records: %w", err)
	}
	if f.Records == nil {
		f.Records = []domain.LicenseRecord{}
	}
	return f.Records, nil
}

func (s *JSONRecordStore) Save(ctx context.Context, records []domain.LicenseRecord) error {
	if records == nil {
		records = []domain.LicenseRecord{}
	}
	if err := files.WriteJSONAtomic(s.path, recordsFile{Records: records}, 0o644); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	infrastructure.AddSpanEvent(ctx, "records.saved", attribute.Int("records", len(records)))
	return nil
}

// MemoryRecordStore is an in-process ledger for tests
type MemoryRecordStore struct {
	mu      sync.Mutex
	records []domain.LicenseRecord
	saves   int
	SaveErr error
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{}
}

func (s *MemoryRecordStore) Load(_ context.Context) ([]domain.LicenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LicenseRecord{}, s.records...), nil
}

func (s *MemoryRecordStore) Save(_ context.Context, records []domain.LicenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.records = append([]domain.LicenseRecord{}, records...)
	s.saves++
	return nil
}

// Saves reports the number of successful Save calls
func (s *MemoryRecordStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
