package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/lotsched/internal/config"
	"github.com/aristath/lotsched/internal/events"
	"github.com/aristath/lotsched/internal/logx"
	"github.com/aristath/lotsched/internal/persistence"
	"github.com/aristath/lotsched/internal/planner"
)

// app holds what every command needs once flags are parsed.
type app struct {
	// Flags
	globalPath  string
	projectPath string
	dbPath      string
	logLevel    string
	jsonOut     bool

	cfg     *config.Config
	log     zerolog.Logger
	bus     *events.EventBus
	store   *persistence.SQLiteStore
	planner *planner.Planner
}

// setup loads configuration and opens the store. It runs before every
// command that touches lots.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = logx.New(logx.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.store, err = persistence.NewSQLiteStore(cmd.Context(), cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	a.bus = events.NewEventBus()

	opts, err := a.plannerOptions(cfg)
	if err != nil {
		return err
	}
	a.planner, err = planner.New(opts)
	return err
}

func (a *app) plannerOptions(cfg *config.Config) (planner.Options, error) {
	cal, err := cfg.Calendar.Build()
	if err != nil {
		return planner.Options{}, err
	}
	templates, err := config.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return planner.Options{}, err
	}

	return planner.Options{
		Store:           a.store,
		Calendar:        cal,
		Milestones:      cfg.Milestones,
		Templates:       templates,
		DefaultTemplate: cfg.DefaultTemplate,
		Subcontractors:  cfg.SubcontractorList(),
		Bus:             a.bus,
		Logger:          a.log,
	}, nil
}

// loadConfig resolves the config paths and applies flag overrides.
func (a *app) loadConfig() (*config.Config, error) {
	if a.globalPath == "" && a.projectPath == "" {
		global, project, err := config.DefaultPaths()
		if err != nil {
			return nil, err
		}
		a.globalPath, a.projectPath = global, project
	}

	cfg, err := config.Load(a.globalPath, a.projectPath)
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.DatabasePath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	return cfg, nil
}

// reload re-reads configuration and templates into the running planner.
func (a *app) reload() (*config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := a.plannerOptions(cfg)
	if err != nil {
		return nil, err
	}
	a.planner.Reconfigure(opts.Calendar, opts.Milestones, opts.Templates, opts.DefaultTemplate, opts.Subcontractors)
	a.cfg = cfg
	return cfg, nil
}

func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing store")
		}
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseDateFlag parses YYYY-MM-DD; empty yields the zero date.
func parseDateFlag(name, value string) (civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return d, nil
}

func withApp(a *app, run func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		if err := a.setup(cmd); err != nil {
			return err
		}
		return run(cmd.Context(), cmd, args)
	}
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
