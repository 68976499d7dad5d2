// Package dispatch fires clock-scheduled jobs in the operating timezone. A
// rules file maps job names to HH:MM times and weekdays; the dispatcher
// ticks once a minute, runs whatever is due, and remembers last-run times so
// a restart never double-fires a slot.
package dispatch

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dailymanna/manna/internal/dates"
)

// Built-in job names referenced by the default rules.
const (
	JobDailySend     = "daily-send"
	JobWeeklySummary = "weekly-summary"
)

// DefaultMaxDelay is how far past its slot a job may still fire. Beyond
// this the slot is considered missed; the next occurrence will catch up.
const DefaultMaxDelay = 2 * time.Hour

// Rule schedules one job at a clock time on a set of weekdays.
type Rule struct {
	Name     string // unique rule name, also the job name unless Job is set
	Job      string
	Hour     int
	Minute   int
	Weekdays [7]bool // Monday-based
}

// JobName returns the job this rule triggers.
func (r Rule) JobName() string {
	if r.Job != "" {
		return r.Job
	}
	return r.Name
}

// WeekdaysLabel renders the weekday set for logs: "daily" or a
// comma-separated index list.
func (r Rule) WeekdaysLabel() string {
	all := true
	var parts []string
	for i, on := range r.Weekdays {
		if !on {
			all = false
			continue
		}
		parts = append(parts, strconv.Itoa(i))
	}
	if all {
		return "daily"
	}
	return strings.Join(parts, ",")
}

type ruleYAML struct {
	Name string   `yaml:"name"`
	Job  string   `yaml:"job"`
	Time string   `yaml:"time"`
	Days []string `yaml:"days"`
}

type configYAML struct {
	MaxDelay string     `yaml:"max_delay"`
	Jobs     []ruleYAML `yaml:"jobs"`
}

// Config is the parsed rules file.
type Config struct {
	MaxDelay time.Duration
	Rules    []Rule
}

// DefaultConfig covers the two clock-driven jobs: the daily content send
// every morning and the weekly schedule summary on Sunday evening.
func DefaultConfig() Config {
	return Config{
		MaxDelay: DefaultMaxDelay,
		Rules: []Rule{
			{Name: JobDailySend, Hour: 6, Minute: 0, Weekdays: allWeekdays()},
			{Name: JobWeeklySummary, Hour: 21, Minute: 0, Weekdays: weekdaySet(6)},
		},
	}
}

// LoadConfig reads the rules file. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read dispatch rules: %w", err)
	}

	var raw configYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse dispatch rules: %w", err)
	}

	cfg := Config{MaxDelay: DefaultMaxDelay}
	if raw.MaxDelay != "" {
		d, err := time.ParseDuration(raw.MaxDelay)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid max_delay %q", raw.MaxDelay)
		}
		cfg.MaxDelay = d
	}

	seen := map[string]bool{}
	for _, item := range raw.Jobs {
		rule, err := parseRule(item)
		if err != nil {
			return Config{}, err
		}
		if seen[rule.Name] {
			return Config{}, fmt.Errorf("duplicate dispatch rule %q", rule.Name)
		}
		seen[rule.Name] = true
		cfg.Rules = append(cfg.Rules, rule)
	}
	if len(cfg.Rules) == 0 {
		return DefaultConfig(), nil
	}
	sort.Slice(cfg.Rules, func(i, j int) bool { return cfg.Rules[i].Name < cfg.Rules[j].Name })
	return cfg, nil
}

func parseRule(item ruleYAML) (Rule, error) {
	if item.Name == "" {
		return Rule{}, fmt.Errorf("dispatch rule missing name")
	}
	hour, minute, err := parseClock(item.Time)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", item.Name, err)
	}
	weekdays, err := parseDays(item.Days)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", item.Name, err)
	}
	return Rule{
		Name:     item.Name,
		Job:      item.Job,
		Hour:     hour,
		Minute:   minute,
		Weekdays: weekdays,
	}, nil
}

func parseClock(value string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q", value)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q", value)
	}
	return hour, minute, nil
}

func parseDays(days []string) ([7]bool, error) {
	if len(days) == 0 {
		return allWeekdays(), nil
	}
	var set [7]bool
	for _, raw := range days {
		lowered := strings.ToLower(strings.TrimSpace(raw))
		if lowered == "daily" || lowered == "all" {
			return allWeekdays(), nil
		}
		idx, ok := dates.WeekdayIndex(lowered)
		if !ok {
			return set, fmt.Errorf("unknown weekday label %q", raw)
		}
		set[idx] = true
	}
	return set, nil
}

func allWeekdays() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

func weekdaySet(indexes ...int) [7]bool {
	var set [7]bool
	for _, i := range indexes {
		set[i] = true
	}
	return set
}
