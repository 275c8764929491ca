package emptying

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"smartbin-backend/internal/level"
	"smartbin-backend/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []models.EmptyingEvent
	failing bool
}

func (f *fakeStore) SaveEmptyingEvent(_ context.Context, e models.EmptyingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("store unavailable")
	}
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeStore) events() []models.EmptyingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EmptyingEvent(nil), f.saved...)
}

func newTestRecorder(store Store, timeout time.Duration) *Recorder {
	return NewRecorder(store, level.NewTank(), timeout)
}

// startAsync runs Start in a goroutine once the session is registered, so
// the test can feed telemetry afterwards.
func startAsync(t *testing.T, r *Recorder, binID string, before int) chan Result {
	t.Helper()
	results := make(chan Result, 1)
	go func() {
		res, err := r.Start(context.Background(), binID, "u-1", "Pat Collector", before)
		if err != nil {
			t.Errorf("Start: %v", err)
		}
		results <- res
	}()
	waitActive(t, r, binID)
	return results
}

func waitActive(t *testing.T, r *Recorder, binID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !r.Active(binID) {
		if time.Now().After(deadline) {
			t.Fatal("session never became active")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConfirmedEmptyingWritesOneEvent(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, time.Second)

	results := startAsync(t, r, "bin-a", 80)
	r.OnLevelUpdate("bin-a", 80) // same level, not a confirmation
	r.OnLevelUpdate("bin-a", 20)

	res := <-results
	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want completed", res.Outcome)
	}
	events := store.events()
	if len(events) != 1 {
		t.Fatalf("store has %d events, want 1", len(events))
	}
	e := events[0]
	if e.BinID != "bin-a" || e.UserID != "u-1" || e.Collector != "Pat Collector" {
		t.Errorf("event attribution wrong: %+v", e)
	}
	// 80 -> 20 with the default tank.
	if math.Abs(e.VolumeL-74.13) > 0.01 {
		t.Errorf("volume = %.4f, want ~74.13", e.VolumeL)
	}
	if r.Active("bin-a") {
		t.Error("session should be back to idle after confirmation")
	}
}

func TestTimeoutWritesNothing(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, 30*time.Millisecond)

	results := startAsync(t, r, "bin-a", 80)

	res := <-results
	if res.Outcome != OutcomeTimedOut {
		t.Fatalf("outcome = %v, want timed out", res.Outcome)
	}
	if res.Event != nil {
		t.Error("timed-out session must not carry an event")
	}
	if len(store.events()) != 0 {
		t.Fatalf("store has %d events, want 0", len(store.events()))
	}
	if r.Active("bin-a") {
		t.Error("session should be back to idle after timeout")
	}
}

func TestCancelWritesNothing(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, time.Second)

	results := startAsync(t, r, "bin-a", 80)
	if !r.Cancel("bin-a") {
		t.Fatal("Cancel reported no active session")
	}

	res := <-results
	if res.Outcome != OutcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", res.Outcome)
	}
	if len(store.events()) != 0 {
		t.Fatal("cancelled session wrote an event")
	}

	// A late reading after teardown must not resurrect the session.
	r.OnLevelUpdate("bin-a", 5)
	if len(store.events()) != 0 {
		t.Fatal("late telemetry reached a torn-down session")
	}
}

func TestSecondStartIsRejected(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, time.Second)

	results := startAsync(t, r, "bin-a", 80)

	_, err := r.Start(context.Background(), "bin-a", "u-2", "Other", 80)
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start error = %v, want ErrSessionActive", err)
	}

	r.OnLevelUpdate("bin-a", 10)
	<-results

	// With the first session resolved the bin is free again.
	if r.Active("bin-a") {
		t.Fatal("bin still marked active")
	}
}

func TestAccumulationDuringWindowClampsVolume(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, time.Second)

	results := startAsync(t, r, "bin-a", 40)
	r.OnLevelUpdate("bin-a", 55) // level rose while waiting

	res := <-results
	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want completed", res.Outcome)
	}
	events := store.events()
	if len(events) != 1 {
		t.Fatalf("store has %d events, want 1", len(events))
	}
	if events[0].VolumeL != 0 {
		t.Errorf("volume = %.4f, want 0 for a negative delta", events[0].VolumeL)
	}
}

func TestIndependentBinsRunConcurrently(t *testing.T) {
	store := &fakeStore{}
	r := newTestRecorder(store, time.Second)

	resA := startAsync(t, r, "bin-a", 80)
	resB := startAsync(t, r, "bin-b", 60)

	r.OnLevelUpdate("bin-b", 5)
	r.OnLevelUpdate("bin-a", 10)

	a, b := <-resA, <-resB
	if a.Outcome != OutcomeCompleted || b.Outcome != OutcomeCompleted {
		t.Fatalf("outcomes = %v/%v, want completed/completed", a.Outcome, b.Outcome)
	}
	if len(store.events()) != 2 {
		t.Fatalf("store has %d events, want 2", len(store.events()))
	}
}

func TestStoreFailureSurfacesError(t *testing.T) {
	store := &fakeStore{failing: true}
	r := newTestRecorder(store, time.Second)

	errs := make(chan error, 1)
	go func() {
		_, err := r.Start(context.Background(), "bin-a", "u-1", "Pat", 80)
		errs <- err
	}()
	waitActive(t, r, "bin-a")
	r.OnLevelUpdate("bin-a", 10)

	if err := <-errs; err == nil {
		t.Fatal("expected persistence error to surface to the caller")
	}
	if r.Active("bin-a") {
		t.Error("session should be torn down after a failed persist")
	}
}
