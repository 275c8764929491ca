package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartbin-backend/internal/models"
)

// DefaultTiers are the watched fill levels, ascending.
var DefaultTiers = []int{90, 95, 100}

// Store persists threshold notifications.
type Store interface {
	SaveNotification(ctx context.Context, n models.Notification) error
}

// Notifier deduplicates threshold crossings per bin. A tier fires at most
// once per episode; the episode ends when the bin drops back below the
// lowest watched tier.
//
// The episode flag for a tier is only committed after the notification has
// been persisted. A store failure therefore leaves the flag clear and the
// crossing is retried on the next level update; a crash between persist
// and commit can duplicate at most one notification per restart.
type Notifier struct {
	tiers []int
	store Store

	mu       sync.Mutex
	episodes map[string]*binState

	now func() time.Time
}

// binState holds one bin's episode flags behind its own lock, so a slow
// or unreachable persist for one bin never stalls the other bins.
type binState struct {
	mu    sync.Mutex
	fired map[int]bool // tier -> fired this episode
}

// New creates a Notifier watching the given ascending tiers. Nil or empty
// tiers fall back to DefaultTiers.
func New(store Store, tiers []int) *Notifier {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	return &Notifier{
		tiers:    tiers,
		store:    store,
		episodes: make(map[string]*binState),
		now:      time.Now,
	}
}

func (n *Notifier) state(binID string) *binState {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.episodes[binID]
	if s == nil {
		s = &binState{fired: make(map[int]bool)}
		n.episodes[binID] = s
	}
	return s
}

// OnLevelUpdate feeds one level reading for a bin and returns the
// notification created for it, if any. Safe for concurrent use across
// bins; updates for one bin are expected to arrive in order.
func (n *Notifier) OnLevelUpdate(ctx context.Context, binID string, levelPercent int) (*models.Notification, error) {
	s := n.state(binID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if levelPercent < n.tiers[0] {
		// Episode reset: the bin was emptied (or settled), so every tier
		// may fire again on the next rise.
		s.fired = make(map[int]bool)
		return nil, nil
	}

	// Highest tier this level reaches that has not fired yet this episode.
	fire := 0
	for _, tier := range n.tiers {
		if levelPercent >= tier && !s.fired[tier] {
			fire = tier
		}
	}
	if fire == 0 {
		return nil, nil
	}

	notification := models.NewNotification(binID, levelPercent, n.now())
	if err := n.store.SaveNotification(ctx, notification); err != nil {
		// Flag stays clear so the crossing is retried rather than lost.
		return nil, fmt.Errorf("failed to persist notification for bin %s: %w", binID, err)
	}

	for _, tier := range n.tiers {
		if levelPercent >= tier {
			s.fired[tier] = true
		}
	}
	return &notification, nil
}

// Reset drops all episode state for a bin. Called when a bin is retired.
func (n *Notifier) Reset(binID string) {
	s := n.state(binID)
	s.mu.Lock()
	s.fired = make(map[int]bool)
	s.mu.Unlock()
}
