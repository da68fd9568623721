package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuanying/narrator/internal/bus"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow playback events published on the bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := bus.Connect(cmd.Context(), cfg.Bus, ctx.logger())
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			lines := make(chan string, 64)
			sub, err := client.SubscribeEvents(cfg.Bus.SubjectPrefix, func(m bus.EventMessage) {
				line := fmt.Sprintf("%s %s %-9s state=%s chunk=%d offset=%d progress=%.1f",
					m.Time.Local().Format("15:04:05.000"), shortID(m.SessionID), m.Kind, m.State, m.ChunkIndex, m.SourceOffset, m.Progress)
				if m.Error != "" {
					line += " error=" + m.Error
				}
				lines <- line
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			ticker := time.NewTicker(healthInterval)
			defer ticker.Stop()
			healthy := client.Healthy()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case line := <-lines:
					fmt.Fprintln(out, line)
				case <-ticker.C:
					var line string
					if healthy, line = healthChange(client, healthy); line != "" {
						fmt.Fprintln(out, line)
					}
				}
			}
		},
	}
}

const healthInterval = 2 * time.Second

// healthChange reports the bus connection state and a status line when it
// differs from was.
func healthChange(c *bus.Client, was bool) (bool, string) {
	now := c.Healthy()
	switch {
	case now == was:
		return now, ""
	case now:
		return now, "bus connection restored"
	default:
		return now, "bus connection lost, waiting for reconnect"
	}
}
