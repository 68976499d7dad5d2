package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
)

func testLogger() logger.Logger { return logger.New("error", false) }

// 2026-08-24 is a Monday.
func clock(hour, minute int) time.Time {
	return time.Date(2026, 8, 24, hour, minute, 0, 0, dates.Taipei)
}

func mondayConfig(hour, minute int) Config {
	return Config{
		MaxDelay: DefaultMaxDelay,
		Rules: []Rule{
			{Name: "test-job", Hour: hour, Minute: minute, Weekdays: weekdaySet(0)},
		},
	}
}

func TestDue(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		now  time.Time
		last string
		want bool
	}{
		{
			name: "exactly at slot",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(6, 0),
			want: true,
		},
		{
			name: "inside delay window",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(7, 59),
			want: true,
		},
		{
			name: "before slot",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(5, 59),
			want: false,
		},
		{
			name: "past delay window",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(8, 1),
			want: false,
		},
		{
			name: "wrong weekday",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: weekdaySet(6)},
			now:  clock(6, 0),
			want: false,
		},
		{
			name: "already fired this slot",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(6, 30),
			last: clock(6, 1).Format(time.RFC3339),
			want: false,
		},
		{
			name: "last fire was a previous slot",
			rule: Rule{Name: "a", Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			now:  clock(6, 30),
			last: clock(6, 0).AddDate(0, 0, -1).Format(time.RFC3339),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(Config{MaxDelay: DefaultMaxDelay, Rules: []Rule{tt.rule}}, "", testLogger())
			if tt.last != "" {
				d.state[tt.rule.Name] = tt.last
			}
			if got := d.due(tt.rule, tt.now); got != tt.want {
				t.Errorf("due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunDue(t *testing.T) {
	d := NewDispatcher(mondayConfig(6, 0), "", testLogger())
	runs := 0
	d.Register("test-job", func(ctx context.Context) error {
		runs++
		return nil
	})

	d.RunDue(context.Background(), clock(6, 0))
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}

	// The same slot never fires twice.
	d.RunDue(context.Background(), clock(6, 1))
	if runs != 1 {
		t.Errorf("slot re-fired: runs = %d", runs)
	}

	history := d.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	run := history[0]
	if run.Status != RunOK || run.Rule != "test-job" || run.ID == "" {
		t.Errorf("run = %+v", run)
	}
}

func TestRunDueRecordsFailure(t *testing.T) {
	d := NewDispatcher(mondayConfig(6, 0), "", testLogger())
	d.Register("test-job", func(ctx context.Context) error {
		return errors.New("upstream down")
	})

	d.RunDue(context.Background(), clock(6, 0))

	history := d.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	run := history[0]
	if run.Status != RunFailed || run.Error != "upstream down" {
		t.Errorf("run = %+v", run)
	}

	// Even a failed run claims the slot; retry waits for the next one.
	fired := false
	d.Register("test-job", func(ctx context.Context) error {
		fired = true
		return nil
	})
	d.RunDue(context.Background(), clock(6, 5))
	if fired {
		t.Error("failed slot was re-fired")
	}
}

func TestRunDueUnregisteredJob(t *testing.T) {
	d := NewDispatcher(mondayConfig(6, 0), "", testLogger())

	// Must not panic, and must not claim the slot.
	d.RunDue(context.Background(), clock(6, 0))
	if len(d.History()) != 0 {
		t.Errorf("unregistered job produced history: %+v", d.History())
	}

	fired := false
	d.Register("test-job", func(ctx context.Context) error {
		fired = true
		return nil
	})
	d.RunDue(context.Background(), clock(6, 5))
	if !fired {
		t.Error("slot not fired after late registration")
	}
}

func TestStatePersistsAcrossDispatchers(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state", "dispatch_state.json")

	d := NewDispatcher(mondayConfig(6, 0), statePath, testLogger())
	runs := 0
	d.Register("test-job", func(ctx context.Context) error {
		runs++
		return nil
	})
	d.RunDue(context.Background(), clock(6, 0))
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not written: %v", err)
	}

	// A restarted dispatcher loads the state and skips the claimed slot.
	d2 := NewDispatcher(mondayConfig(6, 0), statePath, testLogger())
	if err := d2.loadState(); err != nil {
		t.Fatalf("loadState failed: %v", err)
	}
	d2.Register("test-job", func(ctx context.Context) error {
		runs++
		return nil
	})
	d2.RunDue(context.Background(), clock(6, 30))
	if runs != 1 {
		t.Errorf("restart re-fired the slot: runs = %d", runs)
	}

	// The next day's slot fires normally.
	d2.RunDue(context.Background(), clock(6, 30).AddDate(0, 0, 7))
	if runs != 2 {
		t.Errorf("next slot did not fire: runs = %d", runs)
	}
}

func TestHistoryNewestFirstAndBounded(t *testing.T) {
	d := NewDispatcher(Config{MaxDelay: DefaultMaxDelay}, "", testLogger())
	for i := 0; i < historyLimit+10; i++ {
		d.history = append(d.history, Run{ID: "run", StartedAt: clock(6, 0).Add(time.Duration(i) * time.Minute)})
	}
	d.history = d.history[len(d.history)-historyLimit:]

	history := d.History()
	if len(history) != historyLimit {
		t.Fatalf("history length = %d, want %d", len(history), historyLimit)
	}
	if !history[0].StartedAt.After(history[len(history)-1].StartedAt) {
		t.Error("history not newest first")
	}
}
