package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/scheduler"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPaths returns the conventional config locations.
// Global: ~/.lotsched/config.json
// Project: .lotsched/config.json (relative to cwd)
func DefaultPaths() (global, project string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".lotsched", "config.json"), filepath.Join(".lotsched", "config.json"), nil
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*Config, error) {
	global, project, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	return Load(global, project)
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Calendar: a non-empty week replaces, holidays accumulate
	if len(loaded.Calendar.WorkWeek) > 0 {
		base.Calendar.WorkWeek = loaded.Calendar.WorkWeek
	}
	base.Calendar.Holidays = appendUnique(base.Calendar.Holidays, loaded.Calendar.Holidays...)
	if loaded.Calendar.BuildDays > 0 {
		base.Calendar.BuildDays = loaded.Calendar.BuildDays
	}

	// Milestones form one ladder, so a file that sets any replaces all
	if len(loaded.Milestones) > 0 {
		base.Milestones = loaded.Milestones
	}

	if base.Subcontractors == nil {
		base.Subcontractors = make(map[string]scheduler.Subcontractor)
	}
	for key, sub := range loaded.Subcontractors {
		if sub.ID == "" {
			sub.ID = key
		}
		base.Subcontractors[key] = sub
	}

	if loaded.TemplatesDir != "" {
		base.TemplatesDir = loaded.TemplatesDir
	}
	if loaded.DefaultTemplate != "" {
		base.DefaultTemplate = loaded.DefaultTemplate
	}
	if loaded.DatabasePath != "" {
		base.DatabasePath = loaded.DatabasePath
	}
	if loaded.Log.Level != "" {
		base.Log.Level = loaded.Log.Level
	}
	if loaded.Log.Format != "" {
		base.Log.Format = loaded.Log.Format
	}
	if loaded.Monitor.Schedule != "" {
		base.Monitor.Schedule = loaded.Monitor.Schedule
	}
	if loaded.Monitor.WindowDays > 0 {
		base.Monitor.WindowDays = loaded.Monitor.WindowDays
	}

	return nil
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

// Validate checks the parts of the config that would otherwise fail later.
func (c *Config) Validate() error {
	if _, err := c.Calendar.Build(); err != nil {
		return err
	}

	for i, m := range c.Milestones {
		if m.ID == "" {
			return fmt.Errorf("milestone %d: id is required", i)
		}
		if m.Percent < 0 || m.Percent > 100 {
			return fmt.Errorf("milestone %q: percent %d out of range", m.ID, m.Percent)
		}
		if m.ManualFlag == "" && m.TriggerTask == "" && len(m.TriggerTasks) == 0 {
			return fmt.Errorf("milestone %q: needs a trigger task, trigger tasks or a manual flag", m.ID)
		}
	}

	for key, sub := range c.Subcontractors {
		if sub.ID != "" && sub.ID != key {
			return fmt.Errorf("subcontractor %q: id %q does not match its key", key, sub.ID)
		}
		if sub.Trade == "" {
			return fmt.Errorf("subcontractor %q: trade is required", key)
		}
	}

	if c.Monitor.WindowDays < 0 {
		return fmt.Errorf("monitor window_days must not be negative")
	}
	return nil
}

// Build converts the calendar config into a WorkCalendar.
func (c CalendarConfig) Build() (*calendar.WorkCalendar, error) {
	week := make([]time.Weekday, 0, len(c.WorkWeek))
	for _, name := range c.WorkWeek {
		day, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		week = append(week, day)
	}

	holidays := make([]civil.Date, 0, len(c.Holidays))
	for _, s := range c.Holidays {
		d, err := civil.ParseDate(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parsing holiday %q: %w", s, err)
		}
		holidays = append(holidays, d)
	}

	return calendar.New(week, holidays, c.BuildDays), nil
}

func parseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// SubcontractorList returns the subcontractor table as a slice, ordered by ID.
func (c *Config) SubcontractorList() []scheduler.Subcontractor {
	subs := make([]scheduler.Subcontractor, 0, len(c.Subcontractors))
	for key, sub := range c.Subcontractors {
		if sub.ID == "" {
			sub.ID = key
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}
