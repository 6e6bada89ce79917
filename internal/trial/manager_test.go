package trial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/shared/testutil"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts/domain"
)

const (
	hwA         = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hwB         = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	purchaseURL = "https://example.com/satin-al"
)

type fakeFingerprint struct{ id string }

func (f *fakeFingerprint) Compute() string { return f.id }

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, store Store) (*Manager, *testutil.Clock, *fakeFingerprint) {
	t.Helper()
	clock := testutil.NewClock(start)
	fp := &fakeFingerprint{id: hwA}
	logger, _ := testutil.NewTestLogger(t)
	return NewManager(store, fp, purchaseURL, logger).WithClock(clock.Now), clock, fp
}

func TestManager_NoRecord(t *testing.T) {
	store := NewMemoryStore()
	m, _, _ := newTestManager(t, store)
	ctx := context.Background()

	assert.Equal(t, 15, m.GetRemainingDays(ctx))
	assert.False(t, m.IsTrialExpired(ctx))

	info := m.GetTrialInfo(ctx)
	assert.Equal(t, domain.TrialInfo{IsTrialVersion: true, RemainingDays: 15, TotalDays: 15}, info)
	assert.Zero(t, store.Saves(), "reads must not create a record")
}

func TestManager_CheckTrialInitializes(t *testing.T) {
	store := NewMemoryStore()
	m, _, _ := newTestManager(t, store)
	ctx := context.Background()

	ok, notice := m.CheckTrial(ctx)
	assert.True(t, ok)
	assert.Nil(t, notice)

	rec, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, hwA, rec.HardwareID)
	assert.Equal(t, start.UnixMilli(), rec.FirstRunDate)
	assert.True(t, rec.IsTrialVersion)
	assert.Equal(t, 15, m.GetRemainingDays(ctx))
}

func TestManager_RemainingDaysOverTime(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		days    int
		expired bool
	}{
		{"one minute in", time.Minute, 15, false},
		{"exactly one day", 24 * time.Hour, 14, false},
		{"one day and a minute", 24*time.Hour + time.Minute, 14, false},
		{"ten and a half days", 10*24*time.Hour + 12*time.Hour, 5, false},
		{"final hour", TrialDuration - 30*time.Minute, 1, false},
		{"exactly at duration", TrialDuration, 0, false},
		{"one millisecond past", TrialDuration + time.Millisecond, 0, true},
		{"long past", 90 * 24 * time.Hour, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock, _ := newTestManager(t, NewMemoryStore())
			ctx := context.Background()
			m.CheckTrial(ctx)

			clock.Advance(tt.elapsed)
			assert.Equal(t, tt.days, m.GetRemainingDays(ctx))
			assert.Equal(t, tt.expired, m.IsTrialExpired(ctx))
		})
	}
}

func TestManager_RemainingDaysMonotonic(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	m.CheckTrial(ctx)

	prev := m.GetRemainingDays(ctx)
	for i := 0; i < 20*24; i++ {
		clock.Advance(time.Hour)
		got := m.GetRemainingDays(ctx)
		require.LessOrEqual(t, got, prev)
		require.GreaterOrEqual(t, got, 0)
		prev = got
	}
	assert.Zero(t, prev)
}

func TestManager_CheckTrialWarning(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	m.CheckTrial(ctx)

	clock.Advance(TrialDuration - 59*time.Minute)
	ok, notice := m.CheckTrial(ctx)

	assert.True(t, ok)
	require.NotNil(t, notice)
	assert.Equal(t, domain.NoticeTrialWarning, notice.Kind)
	assert.False(t, notice.Blocking)
	assert.Contains(t, notice.Message, "59 dakika")
	assert.Equal(t, []domain.NoticeAction{domain.ActionPurchase, domain.ActionContinue}, notice.Actions)
}

func TestManager_CheckTrialNoWarningBeforeFinalHour(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	m.CheckTrial(ctx)

	clock.Advance(TrialDuration - 61*time.Minute)
	ok, notice := m.CheckTrial(ctx)
	assert.True(t, ok)
	assert.Nil(t, notice)
}

func TestManager_CheckTrialExpired(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	m.CheckTrial(ctx)

	clock.Advance(TrialDuration + time.Second)
	ok, notice := m.CheckTrial(ctx)

	assert.False(t, ok)
	require.NotNil(t, notice)
	assert.Equal(t, domain.NoticeTrialExpired, notice.Kind)
	assert.True(t, notice.Blocking)
	assert.Equal(t, purchaseURL, notice.PurchaseURL)
	assert.Equal(t, []domain.NoticeAction{domain.ActionPurchase, domain.ActionExit}, notice.Actions)

	// Expired stays expired; the record is not restarted.
	ok, _ = m.CheckTrial(ctx)
	assert.False(t, ok)
}

func TestManager_HardwareChangeRestartsTrial(t *testing.T) {
	store := NewMemoryStore()
	m, clock, fp := newTestManager(t, store)
	ctx := context.Background()
	m.CheckTrial(ctx)

	clock.Advance(TrialDuration + time.Hour)
	require.True(t, m.IsTrialExpired(ctx))

	fp.id = hwB
	assert.False(t, m.IsTrialExpired(ctx), "other device reads as no record")
	assert.Equal(t, 15, m.GetRemainingDays(ctx))

	ok, notice := m.CheckTrial(ctx)
	assert.True(t, ok)
	assert.Nil(t, notice)

	rec, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, hwB, rec.HardwareID)
	assert.Equal(t, clock.Now().UnixMilli(), rec.FirstRunDate)
}

func TestManager_ClockRollback(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	m.CheckTrial(ctx)

	clock.Advance(10 * 24 * time.Hour)
	m.CheckTrial(ctx)
	require.Equal(t, 5, m.GetRemainingDays(ctx))

	clock.Advance(-9 * 24 * time.Hour)
	assert.Equal(t, 5, m.GetRemainingDays(ctx), "rolling the clock back does not return time")

	clock.Advance(15 * 24 * time.Hour)
	assert.True(t, m.IsTrialExpired(ctx), "real elapsed time still counts")
}

func TestManager_ClockBeforeFirstRun(t *testing.T) {
	m, clock, _ := newTestManager(t, NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, m.store.Save(ctx, domain.TrialRecord{
		HardwareID: hwA, FirstRunDate: start.Add(48 * time.Hour).UnixMilli(), IsTrialVersion: true,
	}))

	assert.Equal(t, 15, m.GetRemainingDays(ctx))
	clock.Advance(time.Hour)
	assert.Equal(t, 15, m.GetRemainingDays(ctx))
}

type failingStore struct {
	loadErr error
	saveErr error
}

func (s failingStore) Load(context.Context) (*domain.TrialRecord, error) { return nil, s.loadErr }
func (s failingStore) Save(context.Context, domain.TrialRecord) error    { return s.saveErr }
func (s failingStore) Close() error                                      { return nil }

func TestManager_StoreFailures(t *testing.T) {
	t.Run("tampered record fails closed", func(t *testing.T) {
		m, _, _ := newTestManager(t, failingStore{loadErr: ErrTampered})
		ctx := context.Background()

		assert.True(t, m.IsTrialExpired(ctx))
		assert.Zero(t, m.GetRemainingDays(ctx))
		ok, notice := m.CheckTrial(ctx)
		assert.False(t, ok)
		require.NotNil(t, notice)
		assert.True(t, notice.Blocking)
	})

	t.Run("save failure on first run still allows start", func(t *testing.T) {
		m, _, _ := newTestManager(t, failingStore{saveErr: errors.New("disk full")})
		ok, notice := m.CheckTrial(context.Background())
		assert.True(t, ok)
		assert.Nil(t, notice)
	})
}

func TestManager_GetTrialInfoIsReadOnly(t *testing.T) {
	store := NewMemoryStore()
	m, clock, _ := newTestManager(t, store)
	ctx := context.Background()
	m.CheckTrial(ctx)
	saves := store.Saves()

	clock.Advance(3*24*time.Hour + time.Hour)
	info := m.GetTrialInfo(ctx)

	assert.Equal(t, domain.TrialInfo{
		IsTrialVersion: true,
		FirstRunDate:   start.UnixMilli(),
		RemainingDays:  12,
		IsExpired:      false,
		TotalDays:      15,
	}, info)
	assert.Equal(t, saves, store.Saves())
}
