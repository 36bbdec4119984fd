package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/linreg/pkg/config"
	"github.com/YuminosukeSato/linreg/pkg/log"
)

// app carries what the subcommands share: the effective configuration and
// the logger built from it.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger log.Logger
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "linreg-tool",
		Short: "Train and apply multivariate linear regression models",
		Long: `linreg-tool fits a linear model y = W·x + b to labelled data with
gradient descent, saves it as a checksummed JSON record, and uses saved
models to predict targets for new inputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.StringVar(&a.logFormat, "log-format", log.FormatJSON, "log format (json|console|cloud)")

	rootCmd.AddCommand(
		newTrainCmd(a),
		newPredictCmd(a),
		newInspectCmd(a),
	)
	return rootCmd
}

// setup loads the configuration file, lets explicit flags override it and
// installs the process logger.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		a.cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		a.cfg.Logging.Format = a.logFormat
	}
	if err := log.SetupLoggerTo(a.stderr, a.cfg.Logging.Level, a.cfg.Logging.Format); err != nil {
		return err
	}
	a.logger = log.GetLogger().With(log.ComponentKey, "linreg-tool")
	return nil
}
