package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace/internal/bootstrap"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

const (
	programName = "nftctl"
)

var globalFlags = struct {
	debug      bool
	configFile string
	envPath    string
}{}

// session is what every subcommand runs against
type session struct {
	cfg *config.CLIConfig
	mp  *bootstrap.Marketplace
}

type sessionKey struct{}

func sessionFromContext(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

func loadSession(cmd *cobra.Command, _ []string) error {
	config.ChdirRepoRoot()
	cfg, err := config.LoadCLIConfig(globalFlags.configFile, globalFlags.envPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if globalFlags.debug {
		cfg.Debug = true
	}

	if err := logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": programName,
		},
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mp, err := bootstrap.New(cmd.Context(), &cfg.MarketplaceConfig, bootstrap.DefaultAdapters())
	if err != nil {
		return err
	}

	cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, &session{cfg: cfg, mp: mp}))
	return nil
}

func closeSession(cmd *cobra.Command, _ []string) {
	if s := sessionFromContext(cmd.Context()); s != nil {
		s.mp.Close()
	}
	logger.Flush(2 * time.Second)
}

func main() {
	rootCmd := &cobra.Command{
		Use:               programName,
		Short:             "Mint and browse marketplace tokens",
		SilenceUsage:      true,
		PersistentPreRunE: loadSession,
		PersistentPostRun: closeSession,
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.envPath, "env", "config/", "path to environment files")

	// Subcommands
	rootCmd.AddCommand(mintCommand())
	rootCmd.AddCommand(ownedCommand())
	rootCmd.AddCommand(tokenCommand())
	rootCmd.AddCommand(supplyCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
