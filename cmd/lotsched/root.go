package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lotsched",
		Short: "Workday-aware construction scheduling for build lots",
		Long: `lotsched keeps the schedules of residential build lots on a business-day
calendar. Delays and reschedules cascade through task dependencies, the
final track is repacked behind the work that blocks it, and subcontractor
capacity is checked across every active lot.

Examples:
  lotsched lot create "Lot 14" --start 2024-03-04
  lotsched delay <lot-id> framing 3 --reason weather --dry-run
  lotsched conflicts --from 2024-03-01 --to 2024-04-30
  lotsched board <lot-id>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.globalPath, "config", "", "global config file (default ~/.lotsched/config.json)")
	pf.StringVar(&a.projectPath, "project-config", "", "project config file (default .lotsched/config.json)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newLotCmd(a),
		newDelayCmd(a),
		newRescheduleCmd(a),
		newStartCmd(a),
		newCompleteCmd(a),
		newInspectCmd(a),
		newMilestoneCmd(a),
		newNotifiedCmd(a),
		newConflictsCmd(a),
		newMonitorCmd(a),
		newBoardCmd(a),
		newSubsCmd(a),
		newTemplateCmd(a),
		newConfigCmd(a),
	)
	return root
}
