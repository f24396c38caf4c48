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
	"github.com/nikhiltv/tripforge/core/crewbind"
	"github.com/nikhiltv/tripforge/infra/logger"
)

var (
	crewDepot string
	crewBuses []string
	crewForce bool
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Pair eligible drivers and conductors with depot buses",
	RunE:  runCrew,
}

func init() {
	crewCmd.Flags().StringVar(&crewDepot, "depot", "", "restrict the pass to one depot")
	crewCmd.Flags().StringSliceVar(&crewBuses, "bus", nil, "restrict the pass to the listed bus ids")
	crewCmd.Flags().BoolVar(&crewForce, "force", false, "release current holders before pairing")
	rootCmd.AddCommand(crewCmd)
}

func runCrew(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("force") {
		crewForce = cfg.Crew.Force
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	logg := logger.New("crew-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	results, err := svc.BindCrew(ctx, crewDepot, crewbind.Options{BusIDs: crewBuses, Force: crewForce})
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Skipped {
			logg.Warnf("depot %s skipped: %s", res.DepotID, res.Reason)
			continue
		}
		logg.Infof("depot %s: %d assigned, %d released", res.DepotID, res.Assigned, res.Released)
	}
	return nil
}
