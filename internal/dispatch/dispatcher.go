package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
)

// JobFunc is one runnable job.
type JobFunc func(ctx context.Context) error

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// Run records one job execution for the run-history API.
type Run struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Rule       string    `json:"rule"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

const historyLimit = 100

// Dispatcher evaluates rules once a minute and runs whatever is due. The
// last fire time per rule is persisted so restarts inside a slot's window do
// not re-run it.
type Dispatcher struct {
	cfg       Config
	statePath string
	log       logger.Logger

	mu      sync.Mutex
	jobs    map[string]JobFunc
	state   map[string]string // rule name -> RFC3339 last fire time
	history []Run

	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewDispatcher(cfg Config, statePath string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:           cfg,
		statePath:     statePath,
		log:           log,
		jobs:          map[string]JobFunc{},
		state:         map[string]string{},
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
	}
}

// Register binds a job name to its implementation. Rules naming an
// unregistered job log an error when they fire.
func (d *Dispatcher) Register(name string, fn JobFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs[name] = fn
}

// Trigger requests an immediate evaluation outside the minute tick.
func (d *Dispatcher) Trigger() {
	select {
	case d.manualTrigger <- struct{}{}:
	default:
	}
}

// History returns recent runs, newest first.
func (d *Dispatcher) History() []Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Run, len(d.history))
	for i, run := range d.history {
		out[len(d.history)-1-i] = run
	}
	return out
}

// Rules returns the active rule set.
func (d *Dispatcher) Rules() []Rule {
	return append([]Rule(nil), d.cfg.Rules...)
}

// Start loads persisted state and begins the minute loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.loadState(); err != nil {
		return err
	}

	d.log.Info("dispatcher started",
		logger.Int("rules", len(d.cfg.Rules)),
		logger.Duration("max_delay", d.cfg.MaxDelay))

	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.RunDue(ctx, time.Now())
			case <-d.manualTrigger:
				d.log.Info("manual dispatch evaluation triggered")
				d.RunDue(ctx, time.Now())
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the dispatcher loop.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

// RunDue executes every rule due at the reference instant.
func (d *Dispatcher) RunDue(ctx context.Context, now time.Time) {
	now = now.In(dates.Taipei)
	for _, rule := range d.cfg.Rules {
		if !d.due(rule, now) {
			continue
		}
		d.runRule(ctx, rule, now)
	}
}

// due applies the slot rules: right weekday, at or past the slot, not past
// it by more than MaxDelay, and not already fired for this slot.
func (d *Dispatcher) due(rule Rule, now time.Time) bool {
	if !rule.Weekdays[dates.MondayIndex(now)] {
		return false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), rule.Hour, rule.Minute, 0, 0, dates.Taipei)
	if now.Before(slot) {
		return false
	}
	if now.Sub(slot) > d.cfg.MaxDelay {
		return false
	}

	d.mu.Lock()
	lastRaw := d.state[rule.Name]
	d.mu.Unlock()
	if lastRaw != "" {
		last, err := time.Parse(time.RFC3339, lastRaw)
		if err == nil && !last.Before(slot) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) runRule(ctx context.Context, rule Rule, now time.Time) {
	d.mu.Lock()
	fn := d.jobs[rule.JobName()]
	d.mu.Unlock()

	if fn == nil {
		d.log.Error("dispatch rule names unregistered job",
			logger.String("rule", rule.Name),
			logger.String("job", rule.JobName()))
		return
	}

	run := Run{
		ID:        uuid.NewString(),
		Job:       rule.JobName(),
		Rule:      rule.Name,
		StartedAt: now,
	}
	d.log.Info("dispatching job",
		logger.String("rule", rule.Name),
		logger.String("job", run.Job),
		logger.String("run_id", run.ID))

	err := fn(ctx)
	run.FinishedAt = time.Now().In(dates.Taipei)
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		d.log.Error("job failed",
			logger.String("rule", rule.Name),
			logger.String("run_id", run.ID),
			logger.Error(err))
	} else {
		run.Status = RunOK
		d.log.Info("job finished",
			logger.String("rule", rule.Name),
			logger.String("run_id", run.ID),
			logger.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	}

	d.mu.Lock()
	d.state[rule.Name] = now.Format(time.RFC3339)
	d.history = append(d.history, run)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.mu.Unlock()

	if err := d.saveState(); err != nil {
		d.log.Error("failed to persist dispatch state", logger.Error(err))
	}
}

func (d *Dispatcher) loadState() error {
	if d.statePath == "" {
		return nil
	}
	data, err := os.ReadFile(d.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read dispatch state: %w", err)
	}
	state := map[string]string{}
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("dispatch state file %s: %w", d.statePath, err)
	}
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) saveState() error {
	if d.statePath == "" {
		return nil
	}
	d.mu.Lock()
	data, err := json.MarshalIndent(d.state, "", "  ")
	d.mu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dispatch state directory: %w", err)
	}
	tmp := d.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dispatch state: %w", err)
	}
	if err := os.Rename(tmp, d.statePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace dispatch state: %w", err)
	}
	return nil
}
