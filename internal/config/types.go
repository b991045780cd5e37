package config

import "github.com/aristath/lotsched/internal/scheduler"

// CalendarConfig defines the organization's business-day calendar.
type CalendarConfig struct {
	WorkWeek  []string `json:"work_week,omitempty"`  // Weekday names, e.g. "monday" or "mon"
	Holidays  []string `json:"holidays,omitempty"`   // YYYY-MM-DD
	BuildDays int      `json:"build_days,omitempty"` // Workdays from lot start to target completion
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // trace, debug, info, warn, error
	Format string `json:"format,omitempty"` // console or json
}

// MonitorConfig drives the periodic capacity conflict scan.
type MonitorConfig struct {
	Schedule   string `json:"schedule,omitempty"`    // Cron spec, e.g. "0 6 * * 1-5" or "@every 1h"
	WindowDays int    `json:"window_days,omitempty"` // Calendar days scanned from today
}

// Config is the top-level configuration.
type Config struct {
	Calendar        CalendarConfig                     `json:"calendar"`
	Milestones      []scheduler.Milestone              `json:"milestones,omitempty"`
	Subcontractors  map[string]scheduler.Subcontractor `json:"subcontractors,omitempty"` // Keyed by subcontractor ID
	TemplatesDir    string                             `json:"templates_dir,omitempty"`
	DefaultTemplate string                             `json:"default_template,omitempty"`
	DatabasePath    string                             `json:"database_path,omitempty"`
	Log             LogConfig                          `json:"log"`
	Monitor         MonitorConfig                      `json:"monitor"`
}
