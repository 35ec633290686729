package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"hookbox/internal/github"

	"github.com/spf13/cobra"
)

var (
	registerRepo        string
	registerURL         string
	registerToken       string
	registerAPIURL      string
	registerSecret      string
	registerConfigFile  string
	registerEvents      []string
	registerInsecureSSL bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create the GitHub webhook for a repository",
	Long: `Create a webhook on a GitHub repository that delivers to this hookbox.

The secret comes from --secret, HOOKBOX_SECRET, or the configuration file.
Nothing changes when a webhook with the same URL already exists.`,
	Example: `  hookbox register --repo acme/site --url https://hooks.example.com/webhook`,
	Args:    cobra.NoArgs,
	RunE:    runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerRepo, "repo", "", "GitHub owner/repo")
	registerCmd.Flags().StringVar(&registerURL, "url", "", "Public URL of the webhook endpoint")
	registerCmd.Flags().StringVar(&registerToken, "github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token with admin:repo_hook scope")
	registerCmd.Flags().StringVar(&registerAPIURL, "api-url", os.Getenv("GITHUB_API_URL"), "GitHub API URL (for GitHub Enterprise)")
	registerCmd.Flags().StringVar(&registerSecret, "secret", os.Getenv("HOOKBOX_SECRET"), "Webhook secret")
	registerCmd.Flags().StringVarP(&registerConfigFile, "config", "c", getEnvOrDefault("HOOKBOX_CONFIG_FILE", ""), "Configuration file to read the secret from")
	registerCmd.Flags().StringSliceVar(&registerEvents, "events", []string{"push"}, "Events to subscribe to")
	registerCmd.Flags().BoolVar(&registerInsecureSSL, "insecure-ssl", false, "Skip TLS verification on delivery")

	_ = registerCmd.MarkFlagRequired("repo")
	_ = registerCmd.MarkFlagRequired("url")
}

func runRegister(cmd *cobra.Command, args []string) error {
	secret := registerSecret
	if secret == "" {
		cfg, err := loadConfig(registerConfigFile)
		if err != nil {
			return fmt.Errorf("no --secret given and %w", err)
		}
		secret = cfg.Secret
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	client, err := github.NewClient(ctx, registerToken, registerAPIURL)
	if err != nil {
		return fmt.Errorf("%w (--github-token or GITHUB_TOKEN)", err)
	}

	created, err := client.EnsureHook(ctx, registerRepo, github.HookOptions{
		URL:         registerURL,
		Secret:      secret,
		Events:      registerEvents,
		InsecureSSL: registerInsecureSSL,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Created webhook on %s -> %s\n", registerRepo, registerURL)
	} else {
		fmt.Fprintf(out, "Webhook already exists on %s -> %s\n", registerRepo, registerURL)
	}
	return nil
}
