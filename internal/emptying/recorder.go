package emptying

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartbin-backend/internal/level"
	"smartbin-backend/internal/models"
)

// DefaultConfirmTimeout bounds how long a session waits for the sensor to
// report a changed level after the collector starts emptying.
const DefaultConfirmTimeout = 10 * time.Second

// ErrSessionActive is returned when a second emptying is started for a bin
// that already has one awaiting confirmation.
var ErrSessionActive = errors.New("an emptying session is already active for this bin")

// Outcome of a completed Start call.
type Outcome int

const (
	OutcomeCompleted Outcome = iota // event written
	OutcomeTimedOut                 // no change detected within the window
	OutcomeCancelled                // collector backed out
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "no_change_detected"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result reports how a session ended. Event is set only for
// OutcomeCompleted.
type Result struct {
	Outcome Outcome
	Event   *models.EmptyingEvent
}

// Store persists emptying events.
type Store interface {
	SaveEmptyingEvent(ctx context.Context, e models.EmptyingEvent) error
}

// session is one bin's Idle -> AwaitingConfirmation -> Idle pass. The
// confirm channel carries the first differing level; buffered so the
// telemetry path never blocks on a slow waiter.
type session struct {
	levelBefore int
	confirm     chan int
	cancel      chan struct{}
	cancelOnce  sync.Once
}

// Recorder runs at most one emptying session per bin. Start blocks the
// initiating caller until the session confirms, times out, or is
// cancelled; telemetry feeds in through OnLevelUpdate.
type Recorder struct {
	tank    level.Tank
	timeout time.Duration
	store   Store

	mu       sync.Mutex
	sessions map[string]*session

	now   func() time.Time
	newID func() string
}

// NewRecorder creates a Recorder with the given tank geometry and
// confirmation timeout. A zero timeout falls back to the default.
func NewRecorder(store Store, tank level.Tank, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &Recorder{
		tank:     tank,
		timeout:  timeout,
		store:    store,
		sessions: make(map[string]*session),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Start opens a session for the bin and blocks until it resolves. The
// level at call time becomes the "before" reading. Returns
// ErrSessionActive if the bin already has a session awaiting confirmation.
func (r *Recorder) Start(ctx context.Context, binID, collectorID, collectorName string, currentLevel int) (Result, error) {
	r.mu.Lock()
	if _, exists := r.sessions[binID]; exists {
		r.mu.Unlock()
		return Result{}, ErrSessionActive
	}
	s := &session{
		levelBefore: currentLevel,
		confirm:     make(chan int, 1),
		cancel:      make(chan struct{}),
	}
	r.sessions[binID] = s
	r.mu.Unlock()

	// Whatever happens below, the bin returns to Idle and later telemetry
	// can no longer reach this session.
	defer func() {
		r.mu.Lock()
		delete(r.sessions, binID)
		r.mu.Unlock()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case levelAfter := <-s.confirm:
		return r.record(ctx, binID, collectorID, collectorName, s.levelBefore, levelAfter)
	case <-timer.C:
		return Result{Outcome: OutcomeTimedOut}, nil
	case <-s.cancel:
		return Result{Outcome: OutcomeCancelled}, nil
	case <-ctx.Done():
		return Result{Outcome: OutcomeCancelled}, ctx.Err()
	}
}

// OnLevelUpdate feeds a level reading into a waiting session, if any. The
// first reading that differs from the "before" level confirms the
// emptying; everything else is ignored.
func (r *Recorder) OnLevelUpdate(binID string, levelPercent int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[binID]
	if !ok || levelPercent == s.levelBefore {
		return
	}
	select {
	case s.confirm <- levelPercent:
	default:
		// A confirmation is already queued; this session only takes one.
	}
}

// Cancel aborts the bin's waiting session. Returns false when no session
// is active.
func (r *Recorder) Cancel(binID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[binID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.cancelOnce.Do(func() { close(s.cancel) })
	return true
}

// Active reports whether the bin has a session awaiting confirmation.
func (r *Recorder) Active(binID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[binID]
	return ok
}

func (r *Recorder) record(ctx context.Context, binID, collectorID, collectorName string, before, after int) (Result, error) {
	// Delta can be negative when refuse accumulates during the window;
	// the tank transform clamps the credited volume to zero.
	volume := r.tank.VolumeLiters(float64(before - after))

	event := models.EmptyingEvent{
		ID:        r.newID(),
		BinID:     binID,
		Collector: collectorName,
		UserID:    collectorID,
		VolumeL:   volume,
		EmptiedAt: r.now().Unix(),
	}
	if err := r.store.SaveEmptyingEvent(ctx, event); err != nil {
		return Result{}, fmt.Errorf("failed to persist emptying event for bin %s: %w", binID, err)
	}
	return Result{Outcome: OutcomeCompleted, Event: &event}, nil
}
