package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/aristath/lotsched/internal/scheduler"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name             string
		globalConfig     *Config
		projectConfig    *Config
		expectWorkWeek   int
		expectHolidays   int
		expectBuildDays  int
		expectMilestones int
		expectSubs       int
		checkSub         string
		expectCapacity   int
		expectDB         string
	}{
		{
			name:             "No config files - returns defaults",
			expectWorkWeek:   5,
			expectBuildDays:  120,
			expectMilestones: 7,
			expectDB:         filepath.Join(".lotsched", "lotsched.db"),
		},
		{
			name: "Global only - adds subcontractor and holidays",
			globalConfig: &Config{
				Calendar: CalendarConfig{Holidays: []string{"2024-12-25", "2024-01-01"}},
				Subcontractors: map[string]scheduler.Subcontractor{
					"acme-framing": {Name: "Acme Framing", Trade: "framing", MaxConcurrentLots: 2},
				},
			},
			expectWorkWeek:   5,
			expectHolidays:   2,
			expectBuildDays:  120,
			expectMilestones: 7,
			expectSubs:       1,
			checkSub:         "acme-framing",
			expectCapacity:   2,
			expectDB:         filepath.Join(".lotsched", "lotsched.db"),
		},
		{
			name: "Project only - overrides week, build days and database",
			projectConfig: &Config{
				Calendar:     CalendarConfig{WorkWeek: []string{"mon", "tue", "wed", "thu", "fri", "sat"}, BuildDays: 90},
				DatabasePath: "/var/lib/lotsched.db",
			},
			expectWorkWeek:   6,
			expectBuildDays:  90,
			expectMilestones: 7,
			expectDB:         "/var/lib/lotsched.db",
		},
		{
			name: "Both with merge - holidays accumulate, project subcontractor wins",
			globalConfig: &Config{
				Calendar: CalendarConfig{Holidays: []string{"2024-12-25"}},
				Subcontractors: map[string]scheduler.Subcontractor{
					"acme-framing": {Name: "Acme Framing", Trade: "framing", MaxConcurrentLots: 2},
					"dry-co":       {Name: "Dry Co", Trade: "drywall", MaxConcurrentLots: 4},
				},
			},
			projectConfig: &Config{
				Calendar: CalendarConfig{Holidays: []string{"2024-12-25", "2024-12-26"}},
				Subcontractors: map[string]scheduler.Subcontractor{
					"acme-framing": {Name: "Acme Framing", Trade: "framing", MaxConcurrentLots: 5},
				},
			},
			expectWorkWeek:   5,
			expectHolidays:   2,
			expectBuildDays:  120,
			expectMilestones: 7,
			expectSubs:       2,
			checkSub:         "acme-framing",
			expectCapacity:   5,
			expectDB:         filepath.Join(".lotsched", "lotsched.db"),
		},
		{
			name: "Milestones replace the default ladder",
			projectConfig: &Config{
				Milestones: []scheduler.Milestone{
					{ID: "start", Name: "Started", Percent: 1, ManualFlag: "started"},
				},
			},
			expectWorkWeek:   5,
			expectBuildDays:  120,
			expectMilestones: 1,
			expectDB:         filepath.Join(".lotsched", "lotsched.db"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				writeJSON(t, globalPath, tt.globalConfig)
			}

			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				writeJSON(t, projectPath, tt.projectConfig)
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := len(cfg.Calendar.WorkWeek); got != tt.expectWorkWeek {
				t.Errorf("work week = %d days, want %d", got, tt.expectWorkWeek)
			}
			if got := len(cfg.Calendar.Holidays); got != tt.expectHolidays {
				t.Errorf("holidays = %d, want %d", got, tt.expectHolidays)
			}
			if cfg.Calendar.BuildDays != tt.expectBuildDays {
				t.Errorf("build days = %d, want %d", cfg.Calendar.BuildDays, tt.expectBuildDays)
			}
			if got := len(cfg.Milestones); got != tt.expectMilestones {
				t.Errorf("milestones = %d, want %d", got, tt.expectMilestones)
			}
			if got := len(cfg.Subcontractors); got != tt.expectSubs {
				t.Errorf("subcontractors = %d, want %d", got, tt.expectSubs)
			}
			if cfg.DatabasePath != tt.expectDB {
				t.Errorf("database path = %q, want %q", cfg.DatabasePath, tt.expectDB)
			}

			if tt.checkSub != "" {
				sub, exists := cfg.Subcontractors[tt.checkSub]
				if !exists {
					t.Fatalf("expected subcontractor %q not found", tt.checkSub)
				}
				if sub.ID != tt.checkSub {
					t.Errorf("subcontractor ID = %q, want key %q", sub.ID, tt.checkSub)
				}
				if sub.MaxConcurrentLots != tt.expectCapacity {
					t.Errorf("capacity = %d, want %d", sub.MaxConcurrentLots, tt.expectCapacity)
				}
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	if _, err := Load(globalPath, ""); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"bad weekday", &Config{Calendar: CalendarConfig{WorkWeek: []string{"funday"}}}},
		{"bad holiday", &Config{Calendar: CalendarConfig{Holidays: []string{"12/25/2024"}}}},
		{"milestone percent", &Config{Milestones: []scheduler.Milestone{{ID: "x", Percent: 120, ManualFlag: "x"}}}},
		{"milestone without trigger", &Config{Milestones: []scheduler.Milestone{{ID: "x", Percent: 10}}}},
		{"subcontractor without trade", &Config{Subcontractors: map[string]scheduler.Subcontractor{"s": {Name: "S"}}}},
		{"subcontractor id mismatch", &Config{Subcontractors: map[string]scheduler.Subcontractor{"s": {ID: "t", Trade: "paint"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			writeJSON(t, path, tt.cfg)
			if _, err := Load("", path); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}

	if cfg.DefaultTemplate != DefaultTemplateName {
		t.Errorf("default template = %q, want %q", cfg.DefaultTemplate, DefaultTemplateName)
	}
	if cfg.Monitor.Schedule == "" || cfg.Monitor.WindowDays != 30 {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
}

func TestCalendarBuild(t *testing.T) {
	cc := CalendarConfig{
		WorkWeek:  []string{"Monday", "tue", "WEDNESDAY", "thu"},
		Holidays:  []string{"2024-01-03"},
		BuildDays: 10,
	}

	cal, err := cc.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		date civil.Date
		want bool
	}{
		{civil.Date{Year: 2024, Month: time.January, Day: 1}, true},  // Monday
		{civil.Date{Year: 2024, Month: time.January, Day: 3}, false}, // Holiday
		{civil.Date{Year: 2024, Month: time.January, Day: 4}, true},  // Thursday
		{civil.Date{Year: 2024, Month: time.January, Day: 5}, false}, // Friday off
	}
	for _, tt := range tests {
		if got := cal.IsWorkDay(tt.date); got != tt.want {
			t.Errorf("IsWorkDay(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
	if cal.BuildDays() != 10 {
		t.Errorf("BuildDays = %d, want 10", cal.BuildDays())
	}
}

func TestSubcontractorList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subcontractors["zeta"] = scheduler.Subcontractor{Trade: "paint"}
	cfg.Subcontractors["alpha"] = scheduler.Subcontractor{ID: "alpha", Trade: "framing"}

	subs := cfg.SubcontractorList()
	if len(subs) != 2 || subs[0].ID != "alpha" || subs[1].ID != "zeta" {
		t.Errorf("SubcontractorList = %+v", subs)
	}
}
