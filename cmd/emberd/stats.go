package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/smukkama/emberd/internal/config"
	"github.com/smukkama/emberd/internal/stats"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the most recent per-worker readiness snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Stats.Enabled {
				return fmt.Errorf("stats reporting is disabled (set EMBERD_STATS_ENABLED=true)")
			}

			pub := stats.NewPublisher(redis.NewClient(&redis.Options{Addr: cfg.Stats.Addr}))
			snaps, err := pub.All(context.Background())
			if err != nil {
				return fmt.Errorf("read snapshots: %w", err)
			}
			for _, s := range snaps {
				fmt.Printf("worker %d: %d active connections (updated %s)\n",
					s.WorkerID, s.ActiveConns, s.LastUpdated.Format("15:04:05"))
			}
			return nil
		},
	}
}
