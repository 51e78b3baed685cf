package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/agentconfgen/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type options struct {
	outputDir string
	logFormat string
	logLevel  string
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly (help was shown),
// or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	var opts options
	var selected *app.Config

	root := &cobra.Command{
		Use:   "agentconfgen",
		Short: "Generate building-automation agent configurations from building metadata",
		Long: `agentconfgen maps semantic building metadata (CSV or SQLite point lists, or a
Neo4j graph) onto agent configuration templates and writes one configuration
per device, a config_metadata.json manifest and an error report for devices
that could not be mapped.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Output directory. Overrides output_dir from the configuration.")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	for _, f := range app.Flavors() {
		name := f.Name
		root.AddCommand(&cobra.Command{
			Use:   name + " CONFIG",
			Short: f.Description,
			Long: f.Description + `.

CONFIG is a .json, .jsonc, .yaml or .yml run configuration, a single .hcl
file, or a directory of .hcl files.`,
			Args: cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				selected = &app.Config{Flavor: name, ConfigPath: args[0]}
				return nil
			},
		})
	}

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if selected == nil {
		slog.Debug("No flavor selected, help was printed.")
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.", "flavor", selected.Flavor)

	logFormat := strings.ToLower(opts.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(opts.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath: selected.ConfigPath,
		Flavor:     selected.Flavor,
		OutputDir:  opts.outputDir,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
