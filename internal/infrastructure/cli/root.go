// Package cli implements the pdfrag command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/app"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/config"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/logging"
)

// DefaultConfigFile is picked up from the working directory when --config is not set.
const DefaultConfigFile = "pdfrag.toml"

var (
	cfgFile  string
	envFile  string
	logLevel string

	cfg    *config.Config
	logger arbor.ILogger

	// newApp is swapped in tests.
	newApp = app.New
)

var (
	okColor    = color.New(color.FgGreen).SprintFunc()
	warnColor  = color.New(color.FgYellow).SprintFunc()
	errColor   = color.New(color.FgRed).SprintFunc()
	labelColor = color.New(color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "pdfrag",
	Short:         "Ask questions about PDF documents",
	Long:          `pdfrag ingests PDF files into per-document vector collections and answers questions using only the retrieved passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			if _, err := os.Stat(DefaultConfigFile); err == nil {
				path = DefaultConfigFile
			}
		}

		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		cfg = loaded
		logger = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (TOML or YAML, default ./pdfrag.toml if present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errColor("Error:"), err)
		stop()
		os.Exit(1)
	}
}

// openApp wires the application for one command. The caller closes it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	return newApp(cmd.Context(), cfg, logger)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.Validation("invalid document id %q", arg)
	}
	return id, nil
}
