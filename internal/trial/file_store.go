package trial

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/files"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

// FileStore persists the trial record as a sealed JSON file plus a mirror
// copy in a second location. Either copy restores the other.
type FileStore struct {
	primary string
	mirror  string
	sealer  sealer
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a store at primary, mirrored to mirror (may be empty).
// secret keys the record seal and must be constant for the application.
func NewFileStore(primary, mirror string, secret []byte, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		primary: primary,
		mirror:  mirror,
		sealer:  sealer{secret: secret},
		logger:  logger.With(slog.String("component", "trial_store")),
	}
}

// Load returns the stored record. A copy that fails its seal is ignored if
// the other copy is intact, and repaired from it. If no intact copy remains
// but one was present, ErrTampered is returned.
func (s *FileStore) Load(ctx context.Context) (*domain.TrialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	p, pErr := s.readCopy(s.primary)
	m, mErr := s.readCopy(s.mirror)

	switch {
	case p != nil && m != nil:
		merged := mergeRecords(*p, *m)
		if merged != *p {
			s.repair(ctx, s.primary, merged)
		}
		if merged != *m {
			s.repair(ctx, s.mirror, merged)
		}
		return &merged, nil
	case p != nil:
		s.repair(ctx, s.mirror, *p)
		return p, nil
	case m != nil:
		s.repair(ctx, s.primary, *m)
		return m, nil
	}

	if errors.Is(pErr, ErrTampered) || errors.Is(mErr, ErrTampered) {
		s.logger.WarnContext(ctx, "trial record failed integrity check",
			slog.String("action", "load"),
			slog.String("path", s.primary))
		return nil, ErrTampered
	}
	if pErr != nil {
		return nil, pErr
	}
	return nil, mErr
}

// Save seals rec and writes both copies. A mirror write failure is logged
// and does not fail the save.
func (s *FileStore) Save(ctx context.Context, rec domain.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	sealed, err := s.sealer.seal(rec)
	if err != nil {
		return err
	}
	if err := files.WriteJSONAtomic(s.primary, sealed, 0o600); err != nil {
		return fmt.Errorf("write trial record: %w", err)
	}
	if s.mirror != "" {
		if err := files.WriteJSONAtomic(s.mirror, sealed, 0o600); err != nil {
			s.logger.WarnContext(ctx, "failed to write trial mirror",
				slog.String("action", "save"),
				slog.String("path", s.mirror),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// readCopy returns (nil, nil) for an absent file and ErrTampered for one
// that does not parse or whose seal does not verify.
func (s *FileStore) readCopy(path string) (*domain.TrialRecord, error) {
	if path == "" {
		return nil, nil
	}
	var sr sealedRecord
	if err := files.ReadJSON(path, &sr); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read trial record: %w", err)
		}
		return nil, ErrTampered
	}
	rec, err := s.sealer.open(sr)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FileStore) repair(ctx context.Context, path string, rec domain.TrialRecord) {
	if path == "" {
		return
	}
	sealed, err := s.sealer.seal(rec)
	if err == nil {
		err = files.WriteJSONAtomic(path, sealed, 0o600)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to repair trial record copy",
			slog.String("action", "repair"),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	s.logger.InfoContext(ctx, "trial record copy restored",
		slog.String("action", "repair"),
		slog.String("path", path))
}

// mergeRecords reconciles two intact copies. For the same device the earliest
// first run and the latest last-seen win; otherwise the primary copy wins.
func mergeRecords(primary, mirror domain.TrialRecord) domain.TrialRecord {
	if primary.HardwareID != mirror.HardwareID {
		return primary
	}
	merged := primary
	if mirror.FirstRunDate < merged.FirstRunDate {
		merged.FirstRunDate = mirror.FirstRunDate
	}
	if mirror.LastSeenDate > merged.LastSeenDate {
		merged.LastSeenDate = mirror.LastSeenDate
	}
	return merged
}
