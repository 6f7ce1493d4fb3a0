package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/extkit/internal/adapters/logging"
	"github.com/felixgeelhaar/extkit/internal/app"
	"github.com/felixgeelhaar/extkit/internal/domain/config"
	"github.com/felixgeelhaar/extkit/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "extkit",
	Short: "Trusted extension sources, catalog search and installs",
	Long: `extkit manages the extensions of an Arcadia installation.

It keeps a list of trusted store sources, searches their catalogs,
and installs extensions only after their manifest and package checksum
have been verified:
  Resolve → Fetch manifest → Download → Validate → Register`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command and prints any error to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printErrorTo(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.extkit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	rootCmd.AddCommand(versionCmd)
}

// configPath returns the --config value or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

// newLogger builds the stderr logger for cfg. --verbose forces debug level.
func newLogger(cfg *config.Config, w io.Writer) ports.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(cfg.Log.Format == "json"),
	)
}

// loadApp loads configuration and builds the application.
func loadApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	opts = append([]app.Option{app.WithLogger(newLogger(cfg, cmd.ErrOrStderr()))}, opts...)
	return app.New(cmd.Context(), cfg, opts...)
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	err = config.Explain(err)

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
