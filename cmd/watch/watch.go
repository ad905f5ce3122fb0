package watch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/diskmanager"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/processor"
	"github.com/tphakala/motionsort/internal/store"
	"github.com/tphakala/motionsort/internal/watcher"

	runcmd "github.com/tphakala/motionsort/cmd/run"
)

// Command creates the long-running watch command.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run whenever motion writes new images",
		Long: `Watch the capture image directory and perform a run once new images have
settled. Runs never overlap. With retention enabled, the output directory is
pruned after every run. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchCaptures(cmd.Context(), a, cmd.OutOrStdout())
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func watchCaptures(ctx context.Context, a *app.Context, out io.Writer) error {
	s := a.Settings

	// one processor for the whole session so the notification cooldown carries over
	p, err := a.Processor()
	if err != nil {
		return err
	}

	var cleaner *diskmanager.Cleaner
	if s.Retention.Enabled {
		if cleaner, err = a.Cleaner(); err != nil {
			return err
		}
	}

	w := watcher.New(watcher.Config{
		Dir:        s.Capture.ImageDir,
		Ext:        s.Capture.ImageExt,
		Debounce:   s.Watch.Debounce,
		Interval:   s.Watch.Interval,
		RunOnStart: true,
		Pending:    pendingImages(a.Store(), s.Capture.ImageDir, s.Capture.ImageExt),
	}, runFunc(a, p, cleaner, out))

	return w.Run(ctx)
}

func runFunc(a *app.Context, p *processor.Processor, cleaner *diskmanager.Cleaner, out io.Writer) watcher.RunFunc {
	return func(ctx context.Context) error {
		ctx = a.TraceContext(ctx)
		defer a.WriteMetrics()

		report, err := p.Run(ctx)
		if report != nil {
			runcmd.PrintSummary(out, report)
		}
		if err != nil {
			return err
		}

		if cleaner != nil {
			if _, cerr := cleaner.AgeBasedCleanup(ctx); cerr != nil {
				app.GetLogger().WithContext(ctx).Warn("retention cleanup failed", logger.Error(cerr))
			}
		}
		return nil
	}
}

// pendingImages reports whether any capture image is waiting in dir.
func pendingImages(st *store.Store, dir, ext string) func() bool {
	return func() bool {
		for range st.Entries(dir, store.Glob("*"+ext)).All() {
			return true
		}
		return false
	}
}

func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.Duration("debounce", viper.GetDuration("watch.debounce"), "Quiet period after the last new image before a run")
	flags.Duration("interval", viper.GetDuration("watch.interval"), "Fallback poll interval, 0 disables")
	flags.Bool("prune", viper.GetBool("retention.enabled"), "Apply the retention policy after every run")

	for key, name := range map[string]string{
		"watch.debounce":    "debounce",
		"watch.interval":    "interval",
		"retention.enabled": "prune",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
