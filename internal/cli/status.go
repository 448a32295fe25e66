package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

var statusEnv string

var statusCmd = &cobra.Command{
	Use:   "status <access-key>",
	Short: "Check the authorization status of an invoice",
	Long:  `Query the gateway for the SRI authorization state of a 49 digit access key`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := invoice.ParseEnvironment(statusEnv)
		if err != nil {
			return err
		}

		appLogger.Debug("status command",
			slog.String("access_key", args[0]),
			slog.String("env", string(env)),
		)

		client := NewGatewayClient(cfg.GatewayURL, cfg.ClientTimeout)
		res, err := client.Status(cmd.Context(), args[0], env)
		if err != nil && res.Status == "" {
			return err
		}
		if printErr := printResult(cmd.OutOrStdout(), res); printErr != nil {
			return printErr
		}
		return err
	},
}
