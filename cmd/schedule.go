package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikhiltv/tripforge/app"
	"github.com/nikhiltv/tripforge/config"
	"github.com/nikhiltv/tripforge/infra/logger"
)

var (
	scheduleHorizon int
	scheduleSeed    int64
	scheduleDepots  []string
	scheduleDate    string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run one schedule regeneration and exit",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleHorizon, "horizon", 0, "override the horizon in days")
	scheduleCmd.Flags().Int64Var(&scheduleSeed, "seed", 0, "override the run seed")
	scheduleCmd.Flags().StringSliceVar(&scheduleDepots, "depot", nil, "restrict the run to the listed depot ids")
	scheduleCmd.Flags().StringVar(&scheduleDate, "date", "", "base date for the run (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if scheduleHorizon > 0 {
		cfg.Scheduling.HorizonDays = scheduleHorizon
	}
	if cmd.Flags().Changed("seed") {
		cfg.Scheduling.Seed = scheduleSeed
	}
	if len(scheduleDepots) > 0 {
		cfg.Scheduling.Depots = scheduleDepots
	}
	if scheduleDate != "" {
		cfg.Scheduling.RunDate = scheduleDate
	}
	if err := cfg.Scheduling.Validate(); err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("schedule-command").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
