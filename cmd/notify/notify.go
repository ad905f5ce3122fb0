package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/notification"
)

// Command returns a cobra command that sends a test notification through the configured providers
func Command(a *app.Context) *cobra.Command {
	var (
		title    string
		message  string
		location string
		attach   string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification",
		Long: `Send a notification through every enabled provider to verify credentials.

Examples:
  # Text only
  motionsort notify --message="Hello"

  # With an image attachment, delivered by Pushover
  motionsort notify --attach=/home/motion/files/01-15-2024_14.30.00_Backyard.webp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := a.NotificationService()
			if err != nil {
				return fmt.Errorf("failed to create notification service: %w", err)
			}
			if !service.Enabled() {
				return fmt.Errorf("no notification provider is enabled")
			}

			if message == "" {
				message = a.Settings.Notification.Message
			}
			if title == "" {
				title = a.Settings.Main.Name
			}

			n := notification.NewNotification(message).
				WithTitle(title).
				WithLocation(location).
				WithTimestamp(time.Now()).
				WithAttachment(attach)

			err = service.Notify(a.TraceContext(cmd.Context()), n)
			a.WriteMetrics()
			if err != nil {
				return fmt.Errorf("failed to send notification: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Notification sent: id=%s providers=%s", n.ID, strings.Join(service.Providers(), ","))
			if attach != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " attachment=%s", attach)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Notification title, default main.name")
	cmd.Flags().StringVar(&message, "message", "", "Notification message, default notification.message")
	cmd.Flags().StringVar(&location, "location", "", "Location tag")
	cmd.Flags().StringVar(&attach, "attach", "", "Image to attach (Pushover only)")

	return cmd
}
