package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/api/routes"
	"github.com/sp2025/darkwatch/internal/config"
	"github.com/sp2025/darkwatch/internal/database"
	"github.com/sp2025/darkwatch/internal/fixtures"
	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/server"
	"github.com/sp2025/darkwatch/internal/severity"
	"github.com/sp2025/darkwatch/internal/version"
)

// bootstrap loads config, sets up logging and returns a migrated database.
func bootstrap() (config.Config, *gorm.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("load config: %w", err)
	}

	out, rotator := logger.RotatingWriter(cfg.LogDir)
	logger.Init(cfg.Debug, out)
	closeLog := func() {
		if rotator != nil {
			_ = rotator.Close()
		}
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		closeLog()
		return cfg, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := routes.Migrate(db); err != nil {
		closeLog()
		return cfg, nil, nil, err
	}
	return cfg, db, closeLog, nil
}

func seed(ctx context.Context, db *gorm.DB, path string) (fixtures.Report, error) {
	set, err := fixtures.Load(path)
	if err != nil {
		return nil, err
	}
	return fixtures.Seed(ctx, db, set)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, closeLog, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeLog()

	log := logger.Log()
	log.WithField("version", version.Full()).Infof("starting %s backend", version.Name)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Seed {
		if _, err := seed(ctx, db, cfg.FixturesPath); err != nil {
			log.WithError(err).Warn("seeding fixtures failed")
		}
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		return err
	}

	log.WithField("port", cfg.HTTPPort).Info("listening")
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newSeedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixtures into empty tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, closeLog, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeLog()

			if path == "" {
				path = cfg.FixturesPath
			}
			report, err := seed(cmd.Context(), db, path)
			if err != nil {
				return err
			}
			if len(report) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database already populated, nothing seeded")
				return nil
			}
			for table, n := range report {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d %s\n", n, table)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "fixtures", "", "fixture file (defaults to DARKWATCH_FIXTURES or the built-in set)")
	return cmd
}

type scoreResult struct {
	DPC           int            `json:"dpc"`
	EI            float64        `json:"ei"`
	CB            int            `json:"cb"`
	FinalSeverity float64        `json:"final_severity"`
	SeverityLevel severity.Level `json:"severity_level"`
}

func newScoreCmd() *cobra.Command {
	var dpc, ei, cb float64
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a severity score without touching the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeScore(cmd.OutOrStdout(), severity.Input{DPC: dpc, EI: ei, CB: cb}, asJSON)
		},
	}
	cmd.Flags().Float64Var(&dpc, "dpc", severity.MinDPC, "data point criticality (1-4)")
	cmd.Flags().Float64Var(&ei, "ei", 0, "exposure index (0-1)")
	cmd.Flags().Float64Var(&cb, "cb", severity.MinCB, "contextual bonus (0-4)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeScore(w io.Writer, in severity.Input, asJSON bool) error {
	n := severity.Normalize(in)
	score, level := severity.Score(n)
	res := scoreResult{DPC: n.DPC, EI: n.EI, CB: n.CB, FinalSeverity: score, SeverityLevel: level}
	if asJSON {
		return json.NewEncoder(w).Encode(res)
	}
	_, err := fmt.Fprintf(w, "dpc=%d ei=%.2f cb=%d final=%.2f level=%s\n", res.DPC, res.EI, res.CB, res.FinalSeverity, res.SeverityLevel)
	return err
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(version.Current())
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Name, version.Full())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
