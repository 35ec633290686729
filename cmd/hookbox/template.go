package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"hookbox/internal/config"
	"hookbox/pkg/templates"

	"github.com/spf13/cobra"
)

var (
	templateDomain     string
	templatePath       string
	templatePort       int
	templateUser       string
	templateGroup      string
	templateWorkingDir string
	templateConfigFile string
	templateLogFile    string
	templateDBPath     string
	templateBinary     string
)

var templateCmd = &cobra.Command{
	Use:   "template <nginx-site|systemd-service>",
	Short: "Print a deployment template",
	Long: `Render a systemd unit or an nginx reverse proxy site for hookbox.

Templates are read from ./templates/<name>.template, then
/etc/hookbox/templates/<name>.template, then the built-in default.`,
	Example: `  hookbox template systemd-service --user hookbox > /etc/systemd/system/hookbox.service
  hookbox template nginx-site --domain hooks.example.com > /etc/nginx/sites-available/hookbox`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: templates.ListTemplates(),
	RunE:      runTemplate,
}

func init() {
	binary, err := os.Executable()
	if err != nil {
		binary = "/usr/local/bin/hookbox"
	}

	templateCmd.Flags().StringVar(&templateDomain, "domain", "", "Public domain (nginx-site)")
	templateCmd.Flags().StringVar(&templatePath, "path", config.DefaultPath, "Webhook path (nginx-site)")
	templateCmd.Flags().IntVarP(&templatePort, "port", "p", getEnvOrDefaultInt("HOOKBOX_PORT", 5000), "Port hookbox listens on")
	templateCmd.Flags().StringVar(&templateUser, "user", "hookbox", "Service user (systemd-service)")
	templateCmd.Flags().StringVar(&templateGroup, "group", "hookbox", "Service group (systemd-service)")
	templateCmd.Flags().StringVar(&templateWorkingDir, "working-dir", "/var/lib/hookbox", "Working directory (systemd-service)")
	templateCmd.Flags().StringVar(&templateConfigFile, "config", filepath.Join("/etc/hookbox", config.DefaultFileName), "Config file path (systemd-service)")
	templateCmd.Flags().StringVar(&templateLogFile, "log", "/var/log/hookbox/hookbox.log", "Log file path (systemd-service)")
	templateCmd.Flags().StringVar(&templateDBPath, "db", "/var/lib/hookbox/hookbox.db", "History database path (systemd-service)")
	templateCmd.Flags().StringVar(&templateBinary, "binary", binary, "Path to the hookbox binary (systemd-service)")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	name := args[0]

	var data templates.TemplateData
	switch name {
	case templates.NginxSite:
		if templateDomain == "" {
			return fmt.Errorf("--domain is required for %s", name)
		}
		data = templates.TemplateData{
			"DOMAIN":       templateDomain,
			"WEBHOOK_PATH": templatePath,
			"PORT":         strconv.Itoa(templatePort),
		}
	case templates.SystemdService:
		data = templates.TemplateData{
			"USER":        templateUser,
			"GROUP":       templateGroup,
			"WORKING_DIR": templateWorkingDir,
			"CONFIG_FILE": templateConfigFile,
			"LOG_FILE":    templateLogFile,
			"DB_PATH":     templateDBPath,
			"BINARY":      templateBinary,
			"PORT":        strconv.Itoa(templatePort),
		}
	}

	rendered, err := templates.Render(name, data)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
