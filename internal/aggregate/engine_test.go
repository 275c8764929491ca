package aggregate

import (
	"context"
	"testing"
	"time"

	"smartbin-backend/internal/models"
)

type fakeSource struct {
	events []models.EmptyingEvent
	users  []models.User
}

func (f *fakeSource) EventsSince(_ context.Context, since *time.Time) ([]models.EmptyingEvent, error) {
	if since == nil {
		return f.events, nil
	}
	var out []models.EmptyingEvent
	for _, ev := range f.events {
		if !time.Unix(ev.EmptiedAt, 0).Before(*since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeSource) UsersByRole(_ context.Context, role string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Role == role && !u.IsDeleted {
			out = append(out, u)
		}
	}
	return out, nil
}

// Tuesday afternoon, so "today", "this-week" and rolling windows all
// resolve to distinct boundaries.
var testNow = time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

func event(bin, user string, vol float64, at time.Time) models.EmptyingEvent {
	return models.EmptyingEvent{
		ID:        bin + "-" + at.Format("20060102150405"),
		BinID:     bin,
		UserID:    user,
		Collector: user,
		VolumeL:   vol,
		EmptiedAt: at.Unix(),
	}
}

func newTestEngine(src *fakeSource) *Engine {
	e := NewEngine(src)
	e.now = func() time.Time { return testNow }
	return e
}

func TestWindowStarts(t *testing.T) {
	tests := []struct {
		w    Window
		want time.Time
		ok   bool
	}{
		{WindowToday, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), true},
		// June 10 2025 is a Tuesday; the week starts Sunday June 8.
		{WindowWeek, time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC), true},
		{WindowMonth, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), true},
		{WindowYear, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		{WindowAllTime, time.Time{}, false},
	}
	for _, tt := range tests {
		start, ok := tt.w.Start(testNow)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.w, ok, tt.ok)
			continue
		}
		if ok && !start.Equal(tt.want) {
			t.Errorf("%s: start = %v, want %v", tt.w, start, tt.want)
		}
	}
}

func TestWindowStartOnSundayIsSameDay(t *testing.T) {
	sunday := time.Date(2025, time.June, 8, 9, 0, 0, 0, time.UTC)
	start, _ := WindowWeek.Start(sunday)
	if want := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("week start on a Sunday = %v, want %v", start, want)
	}
}

func TestParseWindow(t *testing.T) {
	if w, err := ParseWindow(""); err != nil || w != WindowAllTime {
		t.Errorf("ParseWindow(\"\") = %v, %v", w, err)
	}
	if _, err := ParseWindow("fortnight"); err == nil {
		t.Error("ParseWindow accepted an unknown selector")
	}
}

func TestVolumeByBinWindows(t *testing.T) {
	src := &fakeSource{events: []models.EmptyingEvent{
		event("A", "u1", 5, testNow.Add(-1*time.Hour)),
		event("A", "u1", 3, testNow.Add(-2*time.Hour)),
		event("A", "u1", 2, testNow.Add(-3*time.Hour)),
		event("A", "u1", 4, testNow.Add(-24*time.Hour)), // yesterday, Monday
	}}
	e := newTestEngine(src)

	today, err := e.VolumeByBin(context.Background(), WindowToday)
	if err != nil {
		t.Fatalf("VolumeByBin(today): %v", err)
	}
	if len(today) != 1 || today[0].BinID != "A" || today[0].VolumeL != 10 {
		t.Fatalf("today = %+v, want [{A 10}]", today)
	}

	week, err := e.VolumeByBin(context.Background(), WindowWeek)
	if err != nil {
		t.Fatalf("VolumeByBin(week): %v", err)
	}
	if len(week) != 1 || week[0].VolumeL != 14 {
		t.Fatalf("week = %+v, want [{A 14}]", week)
	}
}

func TestVolumeByBinSortsDescending(t *testing.T) {
	src := &fakeSource{events: []models.EmptyingEvent{
		event("A", "u1", 2, testNow.Add(-time.Hour)),
		event("B", "u1", 9, testNow.Add(-time.Hour)),
		event("C", "u1", 5, testNow.Add(-time.Hour)),
	}}
	e := newTestEngine(src)

	got, err := e.VolumeByBin(context.Background(), WindowAllTime)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"B", "C", "A"}
	for i, bin := range want {
		if got[i].BinID != bin {
			t.Fatalf("order = %+v, want %v", got, want)
		}
	}
}

func TestLeaderboardFiltersToCollectors(t *testing.T) {
	src := &fakeSource{
		events: []models.EmptyingEvent{
			event("A", "u1", 7, testNow.Add(-time.Hour)),
			event("B", "u2", 9, testNow.Add(-time.Hour)),
			event("C", "boss", 50, testNow.Add(-time.Hour)), // admin, excluded
			event("A", "ghost", 4, testNow.Add(-time.Hour)), // deleted, excluded
		},
		users: []models.User{
			{ID: "u1", FirstName: "Ann", LastName: "Lee", Role: models.RoleUser},
			{ID: "u2", FirstName: "Bo", LastName: "Kim", Role: models.RoleUser},
			{ID: "boss", FirstName: "Ada", Role: models.RoleAdmin},
			{ID: "ghost", FirstName: "Gone", Role: models.RoleUser, IsDeleted: true},
		},
	}
	e := newTestEngine(src)

	got, err := e.Leaderboard(context.Background(), WindowAllTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("leaderboard has %d rows, want 2: %+v", len(got), got)
	}
	if got[0].UserID != "u2" || got[0].Name != "Bo Kim" || got[0].VolumeL != 9 {
		t.Errorf("first row = %+v, want u2/Bo Kim/9", got[0])
	}
	if got[1].UserID != "u1" || got[1].VolumeL != 7 {
		t.Errorf("second row = %+v, want u1/7", got[1])
	}
}

func TestPerUserBuckets(t *testing.T) {
	src := &fakeSource{events: []models.EmptyingEvent{
		event("A", "u1", 1, testNow.Add(-2*time.Hour)),        // inside 24h
		event("A", "u1", 2, testNow.Add(-3*24*time.Hour)),     // inside 7d
		event("A", "u1", 4, testNow.Add(-20*24*time.Hour)),    // inside 30d (May)
		event("A", "u1", 8, testNow.Add(-100*24*time.Hour)),   // March, all-time only
		event("B", "someone-else", 99, testNow.Add(-time.Hour)),
	}}
	e := newTestEngine(src)

	got, err := e.PerUserBuckets(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.AllTimeL != 15 {
		t.Errorf("all-time = %v, want 15", got.AllTimeL)
	}
	if got.Last30DaysL != 7 {
		t.Errorf("last 30d = %v, want 7", got.Last30DaysL)
	}
	if got.Last7DaysL != 3 {
		t.Errorf("last 7d = %v, want 3", got.Last7DaysL)
	}
	if got.Last24HrsL != 1 {
		t.Errorf("last 24h = %v, want 1", got.Last24HrsL)
	}

	labels := make([]string, len(got.Months))
	for i, m := range got.Months {
		labels[i] = m.Label
	}
	want := []string{"Mar 2025", "May 2025", "Jun 2025"}
	if len(labels) != len(want) {
		t.Fatalf("month buckets = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("month buckets = %v, want %v (chronological)", labels, want)
		}
	}
	if got.Months[2].VolumeL != 3 {
		t.Errorf("June bucket = %v, want 3", got.Months[2].VolumeL)
	}
}
