package prune

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/diskmanager"
)

// Command creates the retention command.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete routed captures older than the retention period",
		Long: `Delete images and clips in the output directory whose capture time is older
than retention.maxage. The newest retention.minfiles per location are always
kept. Files whose names do not parse as captures are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaner, err := a.Cleaner()
			if err != nil {
				return err
			}
			res, err := cleaner.AgeBasedCleanup(a.TraceContext(cmd.Context()))
			a.WriteMetrics()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d files, deleted %d (%d bytes), skipped: min_files=%d max_deletions=%d unparsable=%d\n",
				res.Scanned, res.Deleted, res.BytesFreed,
				res.Skipped[diskmanager.SkipMinFiles],
				res.Skipped[diskmanager.SkipMaxDeletions],
				res.Skipped[diskmanager.SkipUnparsable])
			return nil
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("max-age", viper.GetString("retention.maxage"), "Retention period, e.g. 72h, 30d, 6m")
	flags.Int("min-files", viper.GetInt("retention.minfiles"), "Newest files kept per location regardless of age")
	flags.Int("max-deletions", viper.GetInt("retention.maxdeletions"), "Maximum files deleted per pass, 0 means unlimited")

	for key, name := range map[string]string{
		"retention.maxage":       "max-age",
		"retention.minfiles":     "min-files",
		"retention.maxdeletions": "max-deletions",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
