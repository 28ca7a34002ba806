package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statebridge/internal/config"
	"git.home.luguber.info/inful/statebridge/internal/logfields"
	"git.home.luguber.info/inful/statebridge/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"statebridge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Migrate struct {
		Timeout time.Duration `help:"Abort the run after this long" default:"10m"`
	} `cmd:"" help:"Run the staged migration to isolated domains"`

	Status struct {
		Run string `help:"Show journal events for one run ID"`
	} `cmd:"" help:"Show per-domain migration state"`

	Rollback struct{} `cmd:"" help:"Roll every domain back to legacy routing"`

	Daemon struct{} `cmd:"" help:"Run with metrics, permission sweeps, and config reload"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	if kctx.Command() == "version" {
		fmt.Printf("statebridge %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	switch kctx.Command() {
	case "migrate":
		err = runMigrate(ctx, cfg, logger)
	case "status":
		err = runStatus(ctx, cfg, logger)
	case "rollback":
		err = runRollback(ctx, cfg, logger)
	case "daemon":
		err = runDaemon(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("command failed", logfields.Error(err))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level.SlogLevel()
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	runCtx, cancel := context.WithTimeout(ctx, CLI.Migrate.Timeout)
	defer cancel()

	if err := a.coordinator.Start(runCtx); err != nil {
		st := a.coordinator.Status()
		log.Error("migration failed",
			logfields.RunID(st.RunID),
			logfields.Progress(st.Progress),
			logfields.Error(err))
		return err
	}

	st := a.coordinator.Status()
	fmt.Printf("migration completed (run %s)\n", st.RunID)
	return nil
}

func runStatus(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	for _, b := range a.bridges {
		target := "legacy"
		if b.Migrated() {
			target = "isolated"
		}
		line := fmt.Sprintf("%-18s %s", b.Name(), target)
		if at, ok, err := b.StartedAt(ctx); err == nil && ok {
			line += "  (started " + at.Format(time.RFC3339) + ")"
		}
		fmt.Println(line)
	}

	if CLI.Status.Run != "" {
		events, err := a.journalStore.ByRun(ctx, CLI.Status.Run)
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		for _, e := range events {
			fmt.Printf("%s  %-28s %s\n", e.At.Format(time.RFC3339), e.Name, e.Domain)
		}
	}
	return nil
}

func runRollback(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.coordinator.Rollback(ctx); err != nil {
		return err
	}
	fmt.Println("all domains routed back to legacy")
	return nil
}
