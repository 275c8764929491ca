package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"smartbin-backend/internal/emptying"
	"smartbin-backend/internal/level"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/notifier"
)

// DefaultSampleInterval is the minimum spacing between persisted level
// samples for one bin. Bursty telemetry inside the interval collapses to
// a single write.
const DefaultSampleInterval = 60 * time.Second

// Source is the push feed the ingestor subscribes to, one subscription
// per bin. Implementations must stop invoking the callback once
// Unsubscribe returns.
type Source interface {
	Subscribe(binName string, fn func(models.TelemetryPayload, time.Time)) (Subscription, error)
}

// Subscription is the caller-owned handle for one bin's feed.
type Subscription interface {
	Unsubscribe()
}

// Store is the slice of persistence the ingestor needs.
type Store interface {
	SaveSample(ctx context.Context, s models.TrashLevelSample) error
	UpdateBinTelemetry(ctx context.Context, binID string, levelPercent int, gps *models.GPS, at time.Time) error
}

// Broadcaster pushes computed levels to connected dashboards.
type Broadcaster interface {
	BroadcastLevel(binID string, levelPercent int, at time.Time)
}

// AlertSink receives every threshold notification after it is persisted,
// for fan-out to dashboards and mobile devices.
type AlertSink interface {
	NotifyThreshold(n models.Notification)
}

// Ingestor drives the telemetry-to-event pipeline: each push is decoded,
// turned into a fill percentage, offered to the threshold notifier and any
// waiting emptying session, and - rate limited - snapshotted into the
// sample log. Bins are independent; one bin's readings are processed in
// arrival order by its source goroutine.
type Ingestor struct {
	calc     level.Calculator
	interval time.Duration
	store    Store
	notifier *notifier.Notifier
	recorder *emptying.Recorder
	hub      Broadcaster
	alerts   AlertSink
	source   Source

	mu        sync.Mutex
	lastWrite map[string]time.Time // bin id -> last successful-or-attempted sample write
	subs      map[string]Subscription

	now func() time.Time
}

// New wires an Ingestor. Notifier, recorder and hub may be nil when the
// corresponding stage is not deployed (and in unit tests).
func New(source Source, store Store, calc level.Calculator, n *notifier.Notifier, r *emptying.Recorder, hub Broadcaster, interval time.Duration) *Ingestor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Ingestor{
		calc:      calc,
		interval:  interval,
		store:     store,
		notifier:  n,
		recorder:  r,
		hub:       hub,
		source:    source,
		lastWrite: make(map[string]time.Time),
		subs:      make(map[string]Subscription),
		now:       time.Now,
	}
}

// SetAlertSink attaches the notification fan-out. Must be called before
// the first Watch.
func (i *Ingestor) SetAlertSink(s AlertSink) {
	i.alerts = s
}

// Watch subscribes the bin to its telemetry feed. Watching an already
// watched bin is a no-op.
func (i *Ingestor) Watch(binID, binName string) error {
	i.mu.Lock()
	if _, ok := i.subs[binID]; ok {
		i.mu.Unlock()
		return nil
	}
	i.mu.Unlock()

	sub, err := i.source.Subscribe(binName, func(p models.TelemetryPayload, at time.Time) {
		i.HandlePush(binID, p, at)
	})
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.subs[binID] = sub
	i.mu.Unlock()
	log.Printf("📡 Watching telemetry for bin %s (%s)", binID, binName)
	return nil
}

// Unwatch tears down the bin's subscription, e.g. when it is retired.
func (i *Ingestor) Unwatch(binID string) {
	i.mu.Lock()
	sub, ok := i.subs[binID]
	delete(i.subs, binID)
	i.mu.Unlock()
	if ok {
		sub.Unsubscribe()
		log.Printf("📡 Stopped watching telemetry for bin %s", binID)
	}
}

// Stop unsubscribes every watched bin.
func (i *Ingestor) Stop() {
	i.mu.Lock()
	subs := i.subs
	i.subs = make(map[string]Subscription)
	i.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// HandlePush processes one telemetry push for a bin. Errors are logged and
// absorbed: a bad push or an unreachable store must never kill the feed.
func (i *Ingestor) HandlePush(binID string, p models.TelemetryPayload, at time.Time) {
	lvl, ok := i.levelFor(p)
	if !ok {
		log.Printf("⚠️  Bin %s: push carried neither trashLevel nor distance, skipping", binID)
		return
	}

	ctx := context.Background()

	if err := i.store.UpdateBinTelemetry(ctx, binID, lvl, p.GPS, at); err != nil {
		log.Printf("⚠️  Bin %s: failed to update current level: %v", binID, err)
	}

	if i.notifier != nil {
		if n, err := i.notifier.OnLevelUpdate(ctx, binID, lvl); err != nil {
			log.Printf("⚠️  Bin %s: threshold notification not persisted, will retry: %v", binID, err)
		} else if n != nil {
			log.Printf("🔔 Bin %s crossed %d%%, notification %s created", binID, n.TrashLevel, n.ID)
			if i.alerts != nil {
				i.alerts.NotifyThreshold(*n)
			}
		}
	}

	if i.recorder != nil {
		i.recorder.OnLevelUpdate(binID, lvl)
	}

	if i.hub != nil {
		i.hub.BroadcastLevel(binID, lvl, at)
	}

	i.maybeSample(ctx, binID, lvl, at)
}

// levelFor derives the fill percentage for a push: devices that report
// trashLevel are trusted (bounded), older ones only send the distance.
func (i *Ingestor) levelFor(p models.TelemetryPayload) (int, bool) {
	if p.TrashLevel != nil {
		return level.Clamp(int(*p.TrashLevel + 0.5)), true
	}
	if p.DistanceCm != nil {
		return i.calc.FromDistance(*p.DistanceCm), true
	}
	return 0, false
}

// maybeSample appends a TrashLevelSample unless one was written for this
// bin inside the sampling interval. The last-write stamp advances even
// when the write fails, so an unreachable store is retried on the next
// interval tick instead of on every push.
func (i *Ingestor) maybeSample(ctx context.Context, binID string, lvl int, at time.Time) {
	i.mu.Lock()
	last, ok := i.lastWrite[binID]
	if ok && at.Sub(last) < i.interval {
		i.mu.Unlock()
		return
	}
	i.lastWrite[binID] = at
	i.mu.Unlock()

	sample := models.TrashLevelSample{
		BinID:      binID,
		TrashLevel: lvl,
		CreatedAt:  at.Unix(),
	}
	if err := i.store.SaveSample(ctx, sample); err != nil {
		log.Printf("⚠️  Bin %s: failed to persist level sample: %v", binID, err)
	}
}
