package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/battdrain/battdrain/pkg/events"
	"github.com/battdrain/battdrain/pkg/powerinfo"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: gBasic,
		Short:   "Print every new reading as the daemon takes it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			conf, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}
			noiseFloor := noiseFloorOf(conf)

			evCh, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range evCh {
				logrus.WithFields(logrus.Fields{
					"event": ev.Name,
					"data":  string(ev.Data),
				}).Debug("new event")

				switch ev.Name {
				case events.SnapshotUpdated:
					snap, err := events.DecodeAs[powerinfo.Snapshot](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode snapshot.updated event")
						continue
					}
					cmd.Printf("%s  %3d%%  %s\n", snap.CapturedAt.Local().Format(time.TimeOnly), snap.CapacityPercent, snap.Summary(noiseFloor))
				case events.ConfigReloaded:
					payload, err := events.DecodeAs[events.ConfigReloadedEvent](ev)
					if err != nil {
						logrus.WithError(err).Error("failed to decode config.reloaded event")
						continue
					}
					cmd.Printf("config reloaded, polling every %ds\n", payload.PollIntervalSeconds)
				}
			}

			if ctx.Err() == nil {
				return fmt.Errorf("daemon closed the event stream")
			}
			return nil
		},
	}
}
