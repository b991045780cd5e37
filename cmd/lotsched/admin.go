package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/config"
	"github.com/aristath/lotsched/internal/scheduler"
)

func newSubsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subs",
		Short: "Manage subcontractors",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subcontractors and their capacity",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			subs, err := a.planner.Subcontractors(ctx)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(stdout(cmd), subs)
			}
			return printSubcontractors(cmd, subs)
		}),
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy subcontractors from config into the database",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			n, err := a.planner.SyncSubcontractors(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Synced %d subcontractors\n", n)
			return nil
		}),
	}

	cmd.AddCommand(list, syncCmd)
	return cmd
}

func printSubcontractors(cmd *cobra.Command, subs []scheduler.Subcontractor) error {
	if len(subs) == 0 {
		fmt.Fprintln(stdout(cmd), "No subcontractors.")
		return nil
	}
	tw := newTable(stdout(cmd))
	fmt.Fprintln(tw, "ID\tNAME\tTRADE\tMAX LOTS")
	for _, s := range subs {
		capacity := "unlimited"
		if s.MaxConcurrentLots > 0 {
			capacity = fmt.Sprint(s.MaxConcurrentLots)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Trade, capacity)
	}
	return tw.Flush()
}

func newTemplateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect lot templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			names := a.planner.TemplateNames()
			if a.jsonOut {
				return writeJSON(stdout(cmd), names)
			}
			for _, name := range names {
				marker := " "
				if name == a.cfg.DefaultTemplate {
					marker = "*"
				}
				fmt.Fprintf(stdout(cmd), "%s %s\n", marker, name)
			}
			return nil
		}),
	}

	var dir string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in standard template as YAML for editing",
		Args:  cobra.NoArgs,
		RunE: withApp(a, func(ctx context.Context, cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.TemplatesDir
			}
			path, err := config.SaveTemplate(dir, config.StandardTemplate())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Wrote %s\n", path)
			return nil
		}),
	}
	export.Flags().StringVar(&dir, "dir", "", "target directory (default templates_dir from config)")

	cmd.AddCommand(list, export)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return writeJSON(stdout(cmd), cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the project config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadConfig(); err != nil {
				return err
			}
			path := a.projectPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Wrote %s\n", filepath.Clean(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
