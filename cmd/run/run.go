package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/motionsort/internal/app"
	"github.com/tphakala/motionsort/internal/processor"
)

// Command creates the one-shot run command.
func Command(a *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the detector once and route its results",
		Long: `Run the detector over the pending capture images. Images with detections are
moved to the output directory together with the clips recorded at the same
location within the tolerance window, and a notification is sent for each.
When nothing is detected, every pending image and clip is deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := Execute(cmd.Context(), a, cmd.OutOrStdout())
			return err
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// Execute performs one run and writes its summary to w.
func Execute(ctx context.Context, a *app.Context, w io.Writer) (*processor.Report, error) {
	p, err := a.Processor()
	if err != nil {
		return nil, err
	}

	report, err := p.Run(a.TraceContext(ctx))
	a.WriteMetrics()
	if report != nil {
		PrintSummary(w, report)
	}
	return report, err
}

// PrintSummary writes a short human-readable account of a run.
func PrintSummary(w io.Writer, r *processor.Report) {
	switch r.State {
	case processor.StateFailed:
		fmt.Fprintf(w, "detector failed (exit code %d) after %s\n", r.Detector.ExitCode, r.Duration().Round(time.Millisecond))
		return
	case processor.StateEmpty:
		fmt.Fprintf(w, "no detections: purged %d images, %d clips\n",
			r.Purged["image"], r.Purged["video"])
		return
	}

	counts := r.Counts()
	images, clips := r.Moved()
	fmt.Fprintf(w, "%d labels: %d routed, %d malformed; moved %d images, %d clips\n",
		len(r.Outcomes), counts[processor.OutcomeRouted], counts[processor.OutcomeMalformed], images, clips)
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		if o.Result != processor.OutcomeRouted {
			continue
		}
		fmt.Fprintf(w, "  %s: image=%t clips=%d annotated=%s notify=%s\n",
			o.Name, o.Image != "", len(o.Clips), o.Annotated, o.Notify)
	}
}

func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.Int("tolerance", viper.GetInt("capture.tolerance"), "Seconds between image and clip timestamps, inclusive")
	flags.Float64("confidence", viper.GetFloat64("detector.confidence"), "Detector confidence threshold")
	flags.Bool("delete-annotated", viper.GetBool("routing.deleteannotated"), "Delete the detector's annotated image after routing")
	flags.Bool("purge-artifacts", viper.GetBool("routing.purgeartifactsonempty"), "Also purge stray labels and annotated images when nothing is detected")

	for key, name := range map[string]string{
		"capture.tolerance":             "tolerance",
		"detector.confidence":           "confidence",
		"routing.deleteannotated":       "delete-annotated",
		"routing.purgeartifactsonempty": "purge-artifacts",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
