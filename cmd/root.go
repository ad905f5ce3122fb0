package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/motionsort/cmd/config"
	"github.com/tphakala/motionsort/cmd/notify"
	"github.com/tphakala/motionsort/cmd/prune"
	"github.com/tphakala/motionsort/cmd/run"
	"github.com/tphakala/motionsort/cmd/watch"
	"github.com/tphakala/motionsort/internal/app"
)

// RootCommand creates and returns the root command. Without a subcommand it performs
// one run, the same as "motionsort run".
func RootCommand(a *app.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "motionsort",
		Short: "Sort motion captures with an object detector",
		Long: `motionsort runs the yolov7 detector over the still images motion captured,
moves confirmed images and their clips to the output directory, sends a push
notification for each, and discards everything the detector found nothing in.`,
		Version:       a.Build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(a.Build.String() + "\n")

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err) // flag names are static
	}

	runCmd := run.Command(a)
	subcommands := []*cobra.Command{
		runCmd,
		watch.Command(a),
		notify.Command(a),
		prune.Command(a),
		config.Command(a),
	}
	rootCmd.AddCommand(subcommands...)

	// the bare command behaves like run and accepts its flags
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.RunE = runCmd.RunE

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.Setup(configFile)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml, default searches the standard locations")
	flags.BoolP("debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.Bool("dry-run", viper.GetBool("routing.dryrun"), "Log moves and deletes without performing them")

	for key, name := range map[string]string{
		"debug":          "debug",
		"routing.dryrun": "dry-run",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
