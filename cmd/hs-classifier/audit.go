package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/cache"
	"github.com/spherical/hs-classifier/internal/monitoring"
)

// newAuditCmd creates the audit command group.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect classification audit events",
	}
	cmd.AddCommand(newAuditWatchCmd())
	return cmd
}

func newAuditWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream audit events published to Redis",
		Long:  `Watch subscribes to the audit channel and prints each classification as it happens. Requires cache.driver: redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Cache.Driver != "redis" {
				return errors.New("audit watch needs cache.driver: redis")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := cache.NewRedisClient(cfg.Cache.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			channel := monitoring.ChannelName(cfg.Observability.AuditChannel)
			msgs, unsubscribe, err := client.Subscribe(ctx, channel)
			if err != nil {
				return err
			}
			defer unsubscribe()

			ui := NewUI(outputJSON, noColor)
			ui.Info("Watching %s (Ctrl+C to stop)", channel)

			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-msgs:
					if !ok {
						return nil
					}
					if outputJSON {
						_, _ = os.Stdout.Write(append(msg, '\n'))
						continue
					}
					var ev monitoring.ClassificationEvent
					if err := json.Unmarshal(msg, &ev); err != nil {
						ui.Warning("Skipping malformed event: %v", err)
						continue
					}
					renderEvent(ui, ev)
				}
			}
		},
	}
}

func renderEvent(ui *UI, ev monitoring.ClassificationEvent) {
	when := ev.OccurredAt.Local().Format("15:04:05")
	if ev.Error != "" {
		ui.Error("%s %-6s %-8s %s", when, ev.Region, ev.Channel, ev.Error)
		return
	}
	cached := ""
	if ev.Cached {
		cached = " (cached)"
	}
	ui.Success("%s %-6s %-8s %s %d%% %s %dms%s", when, ev.Region, ev.Channel, ev.HSCode, ev.Confidence, ev.Source, ev.LatencyMs, cached)
}
