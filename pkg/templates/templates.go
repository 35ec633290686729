package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Template names
const (
	NginxSite      = "nginx-site"
	SystemdService = "systemd-service"
)

//go:embed defaults/*.template
var defaults embed.FS

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the override search paths for a template
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join("/etc", "hookbox", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are looked up in the following order:
// 1. ./templates/<name>.template
// 2. /etc/hookbox/templates/<name>.template
// 3. the built-in default
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s (available: %s)", name, strings.Join(ListTemplates(), ", "))
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := defaults.ReadFile("defaults/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("template file not found: %s", name)
	}
	return string(content), nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution. Placeholders
// without a value are an error.
//
// Example:
//
//	data := TemplateData{
//	    "DOMAIN": "hooks.example.com",
//	    "PORT":   "5000",
//	}
//	rendered, err := Render(NginxSite, data)
func Render(templateName string, data TemplateData) (string, error) {
	tmplContent, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	rendered := tmplContent
	for key, value := range data {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}

	if missing := Placeholders(rendered); len(missing) > 0 {
		return "", fmt.Errorf("template %s: no value for %s", templateName, strings.Join(missing, ", "))
	}

	return rendered, nil
}

// Placeholders returns the sorted, unique {{NAME}} placeholders left in content.
func Placeholders(content string) []string {
	seen := make(map[string]bool)
	for {
		start := strings.Index(content, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(content[start:], "}}")
		if end < 0 {
			break
		}
		name := content[start+2 : start+end]
		if name != "" && strings.Trim(name, "ABCDEFGHIJKLMNOPQRSTUVWXYZ_") == "" {
			seen[name] = true
		}
		content = content[start+end+2:]
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		NginxSite,
		SystemdService,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	validNames := map[string]bool{
		NginxSite:      true,
		SystemdService: true,
	}
	return validNames[name]
}
