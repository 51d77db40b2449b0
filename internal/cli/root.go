package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"portfolio/internal/config"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/repository"
	portfolio "portfolio/internal/service/portfolio"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Directory backend overrides; empty means the environment value
	Backend   string
	LocalRoot string
	URL       string
	Explorer  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for portfolioctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "portfolioctl",
		Short: "Browse and upload to portfolio directories",
		Long: `portfolioctl talks to the same directory backends as the explorer server.

It prints folder trees, lists filtered folder contents and uploads files
through the upload validator, so scripts see the rules the UI enforces.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", msg)
				return NewExitError(ExitCommandError, msg)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "directory backend (postgres|remote|localfs), default $DIRECTORY_BACKEND")
	cmd.PersistentFlags().StringVar(&opts.LocalRoot, "root", "", "root directory for the localfs backend, default $LOCAL_ROOT")
	cmd.PersistentFlags().StringVar(&opts.URL, "url", "", "base URL for the remote backend, default $DIRECTORY_URL")
	cmd.PersistentFlags().StringVar(&opts.Explorer, "explorer-config", "", "explorer YAML config, default $EXPLORER_CONFIG")

	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))

	return cmd
}

// environment is the backend and service set one command runs against.
type environment struct {
	directory portfolioSvc.DirectoryService
	services  *portfolio.Services
	logger    *slog.Logger
	close     func()
}

// openEnvironment loads configuration from the environment, applies flag overrides
// and opens the directory backend. Logs go to stderr so stdout stays parseable.
func openEnvironment(ctx context.Context, opts *RootOptions, stderr io.Writer) (*environment, error) {
	cfg := config.Load()
	if opts.Backend != "" {
		cfg.DirectoryBackend = opts.Backend
	}
	if opts.LocalRoot != "" {
		cfg.LocalRoot = opts.LocalRoot
	}
	if opts.URL != "" {
		cfg.DirectoryURL = opts.URL
	}
	if opts.Explorer != "" {
		cfg.ExplorerConfigPath = opts.Explorer
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	explorerCfg, err := config.LoadExplorerConfig(cfg.ExplorerConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load explorer config", err)
	}

	directory, closeDirectory, err := repository.OpenDirectory(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open directory backend", err)
	}

	return &environment{
		directory: directory,
		services:  portfolio.SetupServices(directory, cfg, explorerCfg, logger),
		logger:    logger,
		close:     closeDirectory,
	}, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
