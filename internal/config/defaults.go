package config

import (
	"path/filepath"

	"github.com/aristath/lotsched/internal/calendar"
	"github.com/aristath/lotsched/internal/scheduler"
)

// DefaultTemplateName is the name of the built-in lot template.
const DefaultTemplateName = "standard"

// DefaultConfig returns the default configuration: a Monday-to-Friday week
// with no holidays, the standard milestone ladder and no subcontractors.
func DefaultConfig() *Config {
	return &Config{
		Calendar: CalendarConfig{
			WorkWeek:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			BuildDays: calendar.DefaultBuildDays,
		},
		Milestones: []scheduler.Milestone{
			{ID: "permit", Name: "Permit Issued", Percent: 5, ManualFlag: "permit_issued"},
			{ID: "foundation", Name: "Foundation Complete", Percent: 15, TriggerTask: "Foundation Pour"},
			{ID: "framed", Name: "Framing Complete", Percent: 35, TriggerTask: "Framing"},
			{ID: "dried_in", Name: "Dried In", Percent: 50, TriggerTasks: []string{"Roofing", "Windows & Exterior Doors"}},
			{ID: "rough_ins", Name: "Rough-Ins Passed", Percent: 65, TriggerTasks: []string{"Rough Plumbing", "Rough Electrical", "HVAC Rough-In"}},
			{ID: "drywall", Name: "Drywall Complete", Percent: 80, TriggerTask: "Drywall"},
			{ID: "final", Name: "Final Walkthrough", Percent: 100, TriggerTask: "Final Clean"},
		},
		Subcontractors:  map[string]scheduler.Subcontractor{},
		TemplatesDir:    filepath.Join(".lotsched", "templates"),
		DefaultTemplate: DefaultTemplateName,
		DatabasePath:    filepath.Join(".lotsched", "lotsched.db"),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Monitor: MonitorConfig{
			Schedule:   "0 6 * * 1-5",
			WindowDays: 30,
		},
	}
}

// StandardTemplate returns the built-in single-family template used when no
// template directory provides one of the same name.
func StandardTemplate() scheduler.Template {
	fs := func(pred string) []scheduler.Dependency {
		return []scheduler.Dependency{{PredecessorID: pred, Relation: scheduler.FinishToStart}}
	}

	return scheduler.Template{
		Name: DefaultTemplateName,
		Tasks: []scheduler.TemplateTask{
			{ID: "site_prep", Name: "Site Prep", Trade: "excavation", DurationDays: 3, Track: scheduler.TrackFoundation},
			{ID: "foundation", Name: "Foundation Pour", Trade: "concrete", DurationDays: 5, Track: scheduler.TrackFoundation,
				Dependencies: fs("site_prep"), RequiresInspection: true, IsCriticalPath: true},
			{ID: "framing", Name: "Framing", Trade: "framing", DurationDays: 10, Track: scheduler.TrackStructure,
				Dependencies: fs("foundation"), BlocksFinal: true, IsCriticalPath: true, RequiresInspection: true},
			{ID: "roofing", Name: "Roofing", Trade: "roofing", DurationDays: 4, Track: scheduler.TrackExterior,
				Dependencies: fs("framing"), BlocksFinal: true},
			{ID: "windows", Name: "Windows & Exterior Doors", Trade: "windows", DurationDays: 3, Track: scheduler.TrackExterior,
				Dependencies: []scheduler.Dependency{{PredecessorID: "roofing", Relation: scheduler.StartToStart, LagDays: 2}}, BlocksFinal: true},
			{ID: "siding", Name: "Siding", Trade: "siding", DurationDays: 6, Track: scheduler.TrackExterior,
				Dependencies: fs("windows"), BlocksFinal: true},
			{ID: "plumbing", Name: "Rough Plumbing", Trade: "plumbing", DurationDays: 4, Track: scheduler.TrackInterior,
				Dependencies: fs("framing"), RequiresInspection: true},
			{ID: "electrical", Name: "Rough Electrical", Trade: "electrical", DurationDays: 4, Track: scheduler.TrackInterior,
				Dependencies: []scheduler.Dependency{{PredecessorID: "plumbing", Relation: scheduler.StartToStart, LagDays: 1}}, RequiresInspection: true},
			{ID: "hvac", Name: "HVAC Rough-In", Trade: "hvac", DurationDays: 3, Track: scheduler.TrackInterior,
				Dependencies: fs("framing"), RequiresInspection: true},
			{ID: "insulation", Name: "Insulation", Trade: "insulation", DurationDays: 2, Track: scheduler.TrackInterior,
				Dependencies: append(fs("electrical"), fs("hvac")...)},
			{ID: "drywall", Name: "Drywall", Trade: "drywall", DurationDays: 8, Track: scheduler.TrackInterior,
				Dependencies: fs("insulation"), BlocksFinal: true, IsCriticalPath: true},
			{ID: "paint", Name: "Paint", Trade: "paint", DurationDays: 4, Track: scheduler.TrackFinal},
			{ID: "trim", Name: "Trim & Cabinets", Trade: "finish_carpentry", DurationDays: 5, Track: scheduler.TrackFinal},
			{ID: "flooring", Name: "Flooring", Trade: "flooring", DurationDays: 4, Track: scheduler.TrackFinal},
			{ID: "clean", Name: "Final Clean", Trade: "cleaning", DurationDays: 1, Track: scheduler.TrackFinal},
		},
	}
}
