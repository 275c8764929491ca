package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smartbin-backend/internal/models"
)

// EventSource is the read side the engine aggregates over.
type EventSource interface {
	// EventsSince returns emptying events with emptied_at >= since.
	// A nil since means the full log.
	EventsSince(ctx context.Context, since *time.Time) ([]models.EmptyingEvent, error)
	// UsersByRole returns non-deleted users with the given role.
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
}

// BinVolume is one row of the volume-by-bin report.
type BinVolume struct {
	BinID   string  `json:"bin"`
	VolumeL float64 `json:"volume"`
}

// LeaderboardEntry is one row of the collector leaderboard.
type LeaderboardEntry struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	VolumeL float64 `json:"volume"`
}

// MonthBucket is one bar of the per-user month histogram.
type MonthBucket struct {
	Label   string  `json:"label"` // "Mon YYYY"
	VolumeL float64 `json:"volume"`
}

// UserBuckets is the full per-user stats document: rolling sums for the
// dashboard cards plus the month histogram for the chart.
type UserBuckets struct {
	AllTimeL    float64       `json:"allTime"`
	Last30DaysL float64       `json:"last30Days"`
	Last7DaysL  float64       `json:"last7Days"`
	Last24HrsL  float64       `json:"last24Hours"`
	Months      []MonthBucket `json:"months"` // chronological
}

// Engine computes time-windowed aggregates from the emptying event log on
// demand. It holds no state between calls.
type Engine struct {
	src EventSource
	now func() time.Time
}

// NewEngine creates an Engine over the given event source.
func NewEngine(src EventSource) *Engine {
	return &Engine{src: src, now: time.Now}
}

func (e *Engine) eventsIn(ctx context.Context, w Window) ([]models.EmptyingEvent, error) {
	var since *time.Time
	if start, ok := w.Start(e.now()); ok {
		since = &start
	}
	events, err := e.src.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load emptying events: %w", err)
	}
	return events, nil
}

// VolumeByBin sums emptied volume per bin inside the window, largest
// first.
func (e *Engine) VolumeByBin(ctx context.Context, w Window) ([]BinVolume, error) {
	events, err := e.eventsIn(ctx, w)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	for _, ev := range events {
		totals[ev.BinID] += ev.VolumeL
	}

	out := make([]BinVolume, 0, len(totals))
	for bin, vol := range totals {
		out = append(out, BinVolume{BinID: bin, VolumeL: vol})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].VolumeL != out[b].VolumeL {
			return out[a].VolumeL > out[b].VolumeL
		}
		return out[a].BinID < out[b].BinID
	})
	return out, nil
}

// Leaderboard ranks collectors (role "user" only) by emptied volume
// inside the window, largest first, with display names attached.
func (e *Engine) Leaderboard(ctx context.Context, w Window) ([]LeaderboardEntry, error) {
	events, err := e.eventsIn(ctx, w)
	if err != nil {
		return nil, err
	}
	collectors, err := e.src.UsersByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to load collectors: %w", err)
	}

	names := make(map[string]string, len(collectors))
	for i := range collectors {
		names[collectors[i].ID] = collectors[i].DisplayName()
	}

	totals := make(map[string]float64)
	for _, ev := range events {
		if _, isCollector := names[ev.UserID]; isCollector {
			totals[ev.UserID] += ev.VolumeL
		}
	}

	out := make([]LeaderboardEntry, 0, len(totals))
	for id, vol := range totals {
		out = append(out, LeaderboardEntry{UserID: id, Name: names[id], VolumeL: vol})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].VolumeL != out[b].VolumeL {
			return out[a].VolumeL > out[b].VolumeL
		}
		return out[a].UserID < out[b].UserID
	})
	return out, nil
}

// PerUserBuckets computes one user's rolling sums and month histogram in
// a single pass over their events.
func (e *Engine) PerUserBuckets(ctx context.Context, userID string) (UserBuckets, error) {
	events, err := e.src.EventsSince(ctx, nil)
	if err != nil {
		return UserBuckets{}, fmt.Errorf("failed to load emptying events: %w", err)
	}

	now := e.now()
	cut30 := RollingStart(now, 30)
	cut7 := RollingStart(now, 7)
	cut24 := RollingStart(now, 1)

	var b UserBuckets
	type monthTotal struct {
		first time.Time
		vol   float64
	}
	months := make(map[string]*monthTotal)

	for _, ev := range events {
		if ev.UserID != userID {
			continue
		}
		at := time.Unix(ev.EmptiedAt, 0).In(now.Location())

		b.AllTimeL += ev.VolumeL
		if !at.Before(cut30) {
			b.Last30DaysL += ev.VolumeL
		}
		if !at.Before(cut7) {
			b.Last7DaysL += ev.VolumeL
		}
		if !at.Before(cut24) {
			b.Last24HrsL += ev.VolumeL
		}

		label := at.Format("Jan 2006")
		mt := months[label]
		if mt == nil {
			mt = &monthTotal{first: time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, now.Location())}
			months[label] = mt
		}
		mt.vol += ev.VolumeL
	}

	b.Months = make([]MonthBucket, 0, len(months))
	type keyed struct {
		label string
		mt    *monthTotal
	}
	ordered := make([]keyed, 0, len(months))
	for label, mt := range months {
		ordered = append(ordered, keyed{label, mt})
	}
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].mt.first.Before(ordered[b].mt.first)
	})
	for _, k := range ordered {
		b.Months = append(b.Months, MonthBucket{Label: k.label, VolumeL: k.mt.vol})
	}
	return b, nil
}
