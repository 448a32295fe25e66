package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <payload.json>",
	Short: "Show the idempotency key and content fingerprint of a payload",
	Long: `Compute locally, without contacting the gateway, the idempotency key, the content
fingerprint and the access key numeric code the gateway would use for a payload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return writeFingerprint(cmd.OutOrStdout(), payload)
	},
}

func writeFingerprint(w io.Writer, payload []byte) error {
	in, err := invoice.DecodeInput(payload)
	if err != nil {
		return err
	}
	sub, err := in.Submission()
	if err != nil {
		return err
	}
	key, err := invoice.DeriveKey(sub)
	if err != nil {
		return err
	}
	fp, err := invoice.Fingerprint(sub)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "format:          %s\nidempotency key: %s\nfingerprint:     %s\nnumeric code:    %s\n",
		in.Format(), key, fp, invoice.DeriveNumericCode(key, sub.NumericCode))
	return err
}
