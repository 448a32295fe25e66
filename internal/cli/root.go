// Package cli implements sri-cli, the operator command line for the SRI gateway.
package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/version"
)

var (
	cfg       *config.ClientEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "sri-cli",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "SRI gateway CLI",
	Long: `sri-cli emits invoices through the SRI gateway and queries their authorization status.

The gateway location is read from SRI_GATEWAY_URL (default http://localhost:8090).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewClientConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), "dev")
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusEnv, "env", "", "environment to query (test or prod); both are probed when omitted")
	emitCmd.Flags().BoolVar(&emitFailOnError, "fail-on-error", false, "exit non-zero when the result status is ERROR or NOT_AUTHORIZED")

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fingerprintCmd)
}
