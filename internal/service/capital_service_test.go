package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"minco/internal/ledger"
	"minco/internal/store"
)

type countingBackend struct {
	inner *store.Memory
	saves int
	err   error
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Load(ctx context.Context) ([]byte, bool, error) {
	return b.inner.Load(ctx)
}

func (b *countingBackend) Save(ctx context.Context, data []byte) error {
	b.saves++
	if b.err != nil {
		return b.err
	}
	return b.inner.Save(ctx, data)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func (c *fakeClock) set(t *testing.T, v string) {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t.Fatalf("parse time %q: %v", v, err)
	}
	c.t = ts
}

func newTestService(t *testing.T, backend store.Backend) (*CapitalService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	clock.set(t, "2026-03-01T10:00:00Z")
	svc := &CapitalService{
		Store: &store.Multi{
			Backends:      []store.Backend{backend},
			InitialEquity: decimal.NewFromInt(15),
		},
		InitialEquity: decimal.NewFromInt(15),
		Goals:         ledger.LadderFromFloats([]float64{20, 30, 50}),
		SaveInterval:  10 * time.Second,
		Now:           clock.now,
	}
	return svc, clock
}

func TestUpdateRejectsNegativeAmount(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, _ := newTestService(t, backend)

	_, _, err := svc.Update(context.Background(), UpdateInput{Amount: decimal.NewFromInt(-5)})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err=%v want ErrInvalidAmount", err)
	}
	if backend.saves != 0 {
		t.Fatalf("rejected update reached persistence (%d saves)", backend.saves)
	}
	snap := svc.Read(context.Background())
	if snap.Debug.TotalUpdatesReceived != 0 {
		t.Fatalf("rejected update mutated the document: %+v", snap.Debug)
	}
}

func TestUpdateSurvivesPersistenceFailure(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory(), err: errors.New("backend down")}
	svc, _ := newTestService(t, backend)

	snap, res, err := svc.Update(context.Background(), UpdateInput{Amount: decimal.NewFromInt(42)})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if res.Persisted {
		t.Fatalf("persisted=true with every backend failing")
	}
	if snap.Amount.Cmp(decimal.NewFromInt(42)) != 0 {
		t.Fatalf("snapshot amount=%s want 42", snap.Amount)
	}

	// The in-memory cache stays authoritative for this process.
	again := svc.Read(context.Background())
	if again.Amount.Cmp(decimal.NewFromInt(42)) != 0 {
		t.Fatalf("read after failed persist lost the update: %s", again.Amount)
	}
}

func TestUpdateThrottlesSaves(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, clock := newTestService(t, backend)

	ctx := context.Background()
	if _, res, _ := svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(16)}); !res.Persisted {
		t.Fatalf("first update should persist")
	}
	saves := backend.saves

	clock.advance(2 * time.Second)
	if _, res, _ := svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(17)}); res.Persisted {
		t.Fatalf("update inside throttle window persisted")
	}
	if backend.saves != saves {
		t.Fatalf("throttled update still wrote (%d -> %d)", saves, backend.saves)
	}

	// A new goal bypasses the throttle.
	clock.advance(time.Second)
	_, res, _ := svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(25)})
	if res.NewGoals != 1 || !res.Persisted {
		t.Fatalf("goal crossing result=%+v want persisted with 1 goal", res)
	}

	// So does the minimum interval.
	clock.advance(11 * time.Second)
	if _, res, _ := svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(26)}); !res.Persisted {
		t.Fatalf("update after interval not persisted")
	}
}

func TestUpdatePersistsOnDayChange(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, clock := newTestService(t, backend)
	ctx := context.Background()

	svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(100)})
	clock.advance(2 * time.Second)
	clock.set(t, "2026-03-02T00:00:05Z")

	snap, res, _ := svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(100)})
	if !res.DayChanged || !res.Persisted {
		t.Fatalf("day-boundary update result=%+v", res)
	}
	if snap.Debug.CurrentDay != "2026-03-02" {
		t.Fatalf("currentDay=%s", snap.Debug.CurrentDay)
	}
}

func TestReadLoadsPersistedDocument(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, clock := newTestService(t, backend)
	ctx := context.Background()
	svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(77)})

	// A second service over the same backend models a process restart.
	svc2, _ := newTestService(t, backend)
	svc2.Now = clock.now
	snap := svc2.Read(ctx)
	if snap.Amount.Cmp(decimal.NewFromInt(77)) != 0 {
		t.Fatalf("restarted service amount=%s want 77", snap.Amount)
	}
	if !snap.Debug.HasEverReceivedData {
		t.Fatalf("restart lost hasEverReceivedData")
	}
}

func TestReadRollsOverQuietDay(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, clock := newTestService(t, backend)
	ctx := context.Background()

	svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(120)})
	clock.set(t, "2026-03-02T08:00:00Z")

	snap := svc.Read(ctx)
	if snap.Debug.CurrentDay != "2026-03-02" {
		t.Fatalf("quiet-day read did not roll over: %s", snap.Debug.CurrentDay)
	}
	if snap.Amount.Cmp(decimal.NewFromInt(120)) != 0 {
		t.Fatalf("rollover reset equity to %s", snap.Amount)
	}
	if !snap.DailyProfit.IsZero() {
		t.Fatalf("dailyProfit=%s want 0 after rollover", snap.DailyProfit)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	backend := &countingBackend{inner: store.NewMemory()}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	svc.Update(ctx, UpdateInput{Amount: decimal.NewFromInt(25)})

	snap := svc.Read(ctx)
	delete(snap.GoalsAchieved, "20")

	if _, ok := svc.Read(ctx).GoalsAchieved["20"]; !ok {
		t.Fatalf("mutating a snapshot reached the cached document")
	}
}
