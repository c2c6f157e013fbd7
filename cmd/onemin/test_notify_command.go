package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"onemin/internal/notifications"
	"onemin/internal/services"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			svc := notifications.NewService(cfg)
			if notifications.IsNoop(svc) {
				fmt.Fprintln(cmd.OutOrStdout(), "No notification transport configured")
				return nil
			}
			if err := svc.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return services.Wrap(services.ErrExternalTool, "notifications", "test", "send test notification via "+svc.Name(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent via %s\n", svc.Name())
			return nil
		},
	}
}
