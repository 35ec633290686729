package main

import (
	"fmt"
	"io"
	"os"

	"hookbox/internal/server"

	"github.com/spf13/cobra"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Print the X-Hub-Signature of a payload",
	Long: `Compute the X-Hub-Signature value GitHub would send for a payload, for
testing a running server with curl. Reads stdin when no file (or "-") is given.`,
	Example: `  hookbox sign payload.json
  curl -X POST http://127.0.0.1:5000/webhook \
    -H "X-GitHub-Event: push" -H "X-GitHub-Delivery: test-1" \
    -H "Content-Type: application/json" \
    -H "X-Hub-Signature: $(hookbox sign payload.json)" \
    --data-binary @payload.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVar(&signSecret, "secret", os.Getenv("HOOKBOX_SECRET"), "Webhook secret")
}

func runSign(cmd *cobra.Command, args []string) error {
	if signSecret == "" {
		return fmt.Errorf("a secret is required (--secret or HOOKBOX_SECRET)")
	}

	var payload []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), server.SignPayload(payload, signSecret))
	return nil
}
