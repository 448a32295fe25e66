package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

var emitFailOnError bool

var emitCmd = &cobra.Command{
	Use:   "emit <payload.json>",
	Short: "Emit an invoice through the gateway",
	Long: `Post an invoice payload (canonical, legacy or raw shape) to the gateway and print the result.

Use - to read the payload from stdin. Sending the same payload again returns the stored result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		appLogger.Debug("emitting invoice", slog.String("gateway", cfg.GatewayURL), slog.Int("bytes", len(payload)))

		client := NewGatewayClient(cfg.GatewayURL, cfg.ClientTimeout)
		res, err := client.Emit(cmd.Context(), payload)
		if err != nil && res.Status == "" {
			return err
		}
		if printErr := printResult(cmd.OutOrStdout(), res); printErr != nil {
			return printErr
		}
		if err != nil {
			return err
		}
		if emitFailOnError && (res.Status == invoice.StatusError || res.Status == invoice.StatusNotAuthorized) {
			return fmt.Errorf("invoice %s", res.Status)
		}
		return nil
	},
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- the operator names the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

func printResult(w io.Writer, res invoice.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Normalized())
}
