package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smartbin-backend/internal/level"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/notifier"
)

type fakeStore struct {
	mu          sync.Mutex
	samples     []models.TrashLevelSample
	binUpdates  int
	failSamples bool
}

func (f *fakeStore) SaveSample(_ context.Context, s models.TrashLevelSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSamples {
		return errors.New("store unavailable")
	}
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeStore) UpdateBinTelemetry(_ context.Context, _ string, _ int, _ *models.GPS, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binUpdates++
	return nil
}

type fakeSource struct {
	mu       sync.Mutex
	handlers map[string]func(models.TelemetryPayload, time.Time)
	unsubbed []string
}

type fakeSub struct {
	src  *fakeSource
	name string
}

func (s *fakeSub) Unsubscribe() {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	delete(s.src.handlers, s.name)
	s.src.unsubbed = append(s.src.unsubbed, s.name)
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: make(map[string]func(models.TelemetryPayload, time.Time))}
}

func (f *fakeSource) Subscribe(binName string, fn func(models.TelemetryPayload, time.Time)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[binName] = fn
	return &fakeSub{src: f, name: binName}, nil
}

func (f *fakeSource) push(binName string, p models.TelemetryPayload, at time.Time) {
	f.mu.Lock()
	fn := f.handlers[binName]
	f.mu.Unlock()
	if fn != nil {
		fn(p, at)
	}
}

func distancePayload(cm float64) models.TelemetryPayload {
	return models.TelemetryPayload{DistanceCm: &cm}
}

func TestBurstCollapsesToOneSample(t *testing.T) {
	store := &fakeStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)

	if err := ing.Watch("bin-a", "sensor-a"); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for n := 0; n < 50; n++ {
		src.push("sensor-a", distancePayload(51), base.Add(time.Duration(n)*time.Second))
	}

	if got := len(store.samples); got != 1 {
		t.Fatalf("50 pushes inside one interval wrote %d samples, want 1", got)
	}
	if store.samples[0].TrashLevel != 50 {
		t.Errorf("sample level = %d, want 50", store.samples[0].TrashLevel)
	}
	if store.binUpdates != 50 {
		t.Errorf("current-level updates = %d, want one per push (50)", store.binUpdates)
	}
}

func TestNextIntervalWritesAgain(t *testing.T) {
	store := &fakeStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	src.push("sensor-a", distancePayload(60), base)
	src.push("sensor-a", distancePayload(55), base.Add(59*time.Second))
	src.push("sensor-a", distancePayload(50), base.Add(61*time.Second))

	if got := len(store.samples); got != 2 {
		t.Fatalf("wrote %d samples, want 2 (one per interval)", got)
	}
}

func TestSampleFailureDefersToNextInterval(t *testing.T) {
	store := &fakeStore{failSamples: true}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	src.push("sensor-a", distancePayload(60), base)

	// Store recovers, but the stamp has advanced: no tight-loop retry.
	store.failSamples = false
	src.push("sensor-a", distancePayload(60), base.Add(5*time.Second))
	if len(store.samples) != 0 {
		t.Fatal("sample retried inside the same interval")
	}

	src.push("sensor-a", distancePayload(60), base.Add(61*time.Second))
	if len(store.samples) != 1 {
		t.Fatalf("wrote %d samples after recovery, want 1", len(store.samples))
	}
}

func TestPushedTrashLevelWinsOverDistance(t *testing.T) {
	store := &fakeStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	lvl := 87.0
	cm := 100.0 // would read 0% if derived
	src.push("sensor-a", models.TelemetryPayload{DistanceCm: &cm, TrashLevel: &lvl}, time.Now())

	if len(store.samples) != 1 || store.samples[0].TrashLevel != 87 {
		t.Fatalf("samples = %+v, want one at 87%%", store.samples)
	}
}

func TestPushFeedsThresholdNotifier(t *testing.T) {
	store := &fakeStore{}
	nstore := &notifStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), notifier.New(nstore, nil), nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	lvl := 95.0
	now := time.Now()
	src.push("sensor-a", models.TelemetryPayload{TrashLevel: &lvl}, now)
	src.push("sensor-a", models.TelemetryPayload{TrashLevel: &lvl}, now.Add(time.Second))

	if len(nstore.saved) != 1 {
		t.Fatalf("notifier persisted %d notifications, want 1", len(nstore.saved))
	}
}

type notifStore struct{ saved []models.Notification }

func (s *notifStore) SaveNotification(_ context.Context, n models.Notification) error {
	s.saved = append(s.saved, n)
	return nil
}

func TestUnwatchStopsCallbacks(t *testing.T) {
	store := &fakeStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	ing.Unwatch("bin-a")
	src.push("sensor-a", distancePayload(51), time.Now())

	if len(store.samples) != 0 {
		t.Fatal("push processed after Unwatch")
	}
	if len(src.unsubbed) != 1 || src.unsubbed[0] != "sensor-a" {
		t.Fatalf("source not unsubscribed: %v", src.unsubbed)
	}
}

func TestMissingBodySkipsPush(t *testing.T) {
	store := &fakeStore{}
	src := newFakeSource()
	ing := New(src, store, level.NewCalculator(), nil, nil, nil, time.Minute)
	_ = ing.Watch("bin-a", "sensor-a")

	src.push("sensor-a", models.TelemetryPayload{}, time.Now())

	if store.binUpdates != 0 || len(store.samples) != 0 {
		t.Fatal("empty payload should be skipped entirely")
	}
}
