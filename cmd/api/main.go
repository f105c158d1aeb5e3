package main

import (
	"fmt"
	"os"

	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/harentsoaR/clinic-reception-api/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-api",
		Short:         "Clinic reception API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateIDsCmd())
	rootCmd.AddCommand(seedDoctorsCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the logger every command
// shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.NewZapLogger(cfg), nil
}
