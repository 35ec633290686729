package main

import (
	"fmt"

	"hookbox/internal/security"

	"github.com/spf13/cobra"
)

var secretOut string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a webhook secret",
	Long: `Generate a random secret to share between GitHub and hookbox.

The secret is printed, or written to --out with 0600 permissions.`,
	Args: cobra.NoArgs,
	RunE: runSecret,
}

func init() {
	secretCmd.Flags().StringVarP(&secretOut, "out", "o", "", "Write the secret to this file instead of stdout")
}

func runSecret(cmd *cobra.Command, args []string) error {
	secret, err := security.GenerateSecret()
	if err != nil {
		return err
	}

	if secretOut == "" {
		fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	}

	file, err := security.CreateSecureFile(secretOut, security.PermSecretFile)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, secret); err != nil {
		return fmt.Errorf("failed to write secret: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Secret written to %s\n", secretOut)
	return nil
}
