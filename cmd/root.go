package cmd

import (
	"log/slog"
	"os"

	"github.com/nikogura/resume-optimizer/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "resume-optimizer",
	Short: "Generate job-tailored application documents with a language model",
	Long: `resume-optimizer turns a resume and a job description into tailored application
documents: resumes, cover letters, skill summaries, interview preparation and more.

Each document type is driven by a prompt template. The model's reply is saved as
markdown and rendered to PDF and DOCX.

Run 'resume-optimizer serve' for the HTTP API or 'resume-optimizer generate' for a
one-off run from the command line.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.resume-optimizer/config.json)")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// newLogger writes text logs to stderr at level, or at debug level when verbose.
func newLogger(level slog.Level) (logger *slog.Logger) {
	if getVerbose() {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the configuration named by --config.
func loadConfig() (cfg config.Config, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, err
	}
	return cfg, err
}
