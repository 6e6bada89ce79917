package trial

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const (
	// TrialDays is the length of the evaluation period
	TrialDays = 15

	TrialDuration = TrialDays * 24 * time.Hour

	// WarningWindow is how close to expiry CheckTrial starts warning
	WarningWindow = time.Hour
)

// FingerprintSource yields the current machine's hardware id
type FingerprintSource interface {
	Compute() string
}

// Manager evaluates the trial of the current machine against a Store.
type Manager struct {
	store       Store
	fingerprint FingerprintSource
	purchaseURL string
	now         func() time.Time
	logger      *slog.Logger
}

// NewManager creates a manager. purchaseURL is attached to the expiry notice.
func NewManager(store Store, fp FingerprintSource, purchaseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       store,
		fingerprint: fp,
		purchaseURL: purchaseURL,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "trial")),
	}
}

// WithClock replaces the time source
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// snapshot is the read-time view of the trial
type snapshot struct {
	record    *domain.TrialRecord
	failed    bool
	remaining time.Duration
	expired   bool
}

// evaluate loads the record and classifies it. A record bound to another
// device reads as absent. A record that cannot be loaded or fails its seal
// reads as expired.
func (m *Manager) evaluate(ctx context.Context) snapshot {
	hardwareID := m.fingerprint.Compute()

	rec, err := m.store.Load(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "trial record unavailable, treating trial as expired",
			slog.String("action", "load"),
			slog.String("error", err.Error()))
		return snapshot{failed: true, expired: true}
	}
	if rec == nil || rec.HardwareID != hardwareID {
		return snapshot{remaining: TrialDuration}
	}

	elapsed := m.effectiveNow(rec).Sub(time.UnixMilli(rec.FirstRunDate))
	if elapsed < 0 {
		elapsed = 0
	}
	return snapshot{
		record:    rec,
		remaining: TrialDuration - elapsed,
		expired:   elapsed > TrialDuration,
	}
}

// effectiveNow never goes behind the last time the trial was seen, so
// setting the clock back does not return trial time.
func (m *Manager) effectiveNow(rec *domain.TrialRecord) time.Time {
	now := m.now()
	if seen := time.UnixMilli(rec.LastSeenDate); rec.LastSeenDate > 0 && seen.After(now) {
		return seen
	}
	return now
}

func remainingDays(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	return int((remaining + day - 1) / day)
}

// GetRemainingDays returns whole days left, rounded up. 15 before the first
// launch, 0 once expired.
func (m *Manager) GetRemainingDays(ctx context.Context) int {
	s := m.evaluate(ctx)
	if s.expired {
		return 0
	}
	return remainingDays(s.remaining)
}

// IsTrialExpired reports whether the evaluation period is over
func (m *Manager) IsTrialExpired(ctx context.Context) bool {
	return m.evaluate(ctx).expired
}

// CheckTrial is called once per launch. It creates the record on first run
// (or after a hardware change) and reports whether the application may
// continue, with a notice for the host to show when there is one.
func (m *Manager) CheckTrial(ctx context.Context) (bool, *domain.Notice) {
	hardwareID := m.fingerprint.Compute()
	s := m.evaluate(ctx)

	if s.failed {
		return false, m.expiredNotice()
	}

	if s.record == nil {
		now := m.now()
		rec := domain.TrialRecord{
			HardwareID:     hardwareID,
			FirstRunDate:   now.UnixMilli(),
			IsTrialVersion: true,
			LastSeenDate:   now.UnixMilli(),
		}
		if err := m.store.Save(ctx, rec); err != nil {
			m.logger.ErrorContext(ctx, "failed to persist trial record",
				slog.String("action", "init"),
				slog.String("error", err.Error()))
		} else {
			m.logger.InfoContext(ctx, "trial started",
				slog.String("action", "init"),
				slog.Int("days", TrialDays))
		}
		return true, nil
	}

	m.touch(ctx, *s.record)

	if s.expired {
		m.logger.InfoContext(ctx, "trial expired", slog.String("action", "check"))
		return false, m.expiredNotice()
	}
	if s.remaining <= WarningWindow {
		m.logger.InfoContext(ctx, "trial in final hour",
			slog.String("action", "check"),
			slog.Duration("remaining", s.remaining))
		return true, m.warningNotice(s.remaining)
	}
	return true, nil
}

// touch ratchets LastSeenDate forward
func (m *Manager) touch(ctx context.Context, rec domain.TrialRecord) {
	now := m.now().UnixMilli()
	if now <= rec.LastSeenDate {
		return
	}
	rec.LastSeenDate = now
	if err := m.store.Save(ctx, rec); err != nil && !errors.Is(err, ErrClosed) {
		m.logger.WarnContext(ctx, "failed to update trial last-seen date",
			slog.String("action", "touch"),
			slog.String("error", err.Error()))
	}
}

// GetTrialInfo returns a display snapshot without modifying state
func (m *Manager) GetTrialInfo(ctx context.Context) domain.TrialInfo {
	s := m.evaluate(ctx)
	info := domain.TrialInfo{
		IsTrialVersion: true,
		IsExpired:      s.expired,
		TotalDays:      TrialDays,
	}
	if s.record != nil {
		info.IsTrialVersion = s.record.IsTrialVersion
		info.FirstRunDate = s.record.FirstRunDate
	}
	if !s.expired {
		info.RemainingDays = remainingDays(s.remaining)
	}
	return info
}

// Close releases the store
func (m *Manager) Close() error {
	return m.store.Close()
}
