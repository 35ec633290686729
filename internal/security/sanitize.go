package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	repositoryPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)
	branchPattern     = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	ruleNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_#.-]+$`)
	webhookPathChars  = regexp.MustCompile(`^[a-zA-Z0-9/_.~-]+$`)
)

// ReservedPaths are served by hookbox itself and cannot carry the webhook.
var ReservedPaths = []string{"/ping", "/health", "/status"}

// ValidateRepository ensures an "owner/name" repository is safe to pass to a
// script as an argument.
func ValidateRepository(fullName string) error {
	if fullName == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if !repositoryPattern.MatchString(fullName) {
		return fmt.Errorf("repository %q must look like owner/name", fullName)
	}
	for _, part := range strings.Split(fullName, "/") {
		if strings.HasPrefix(part, "-") || strings.HasPrefix(part, ".") {
			return fmt.Errorf("repository %q has a part starting with '-' or '.'", fullName)
		}
	}
	return nil
}

// ValidateBranchName ensures a branch name is safe to pass to a script.
// Prevents option injection through branch names.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name cannot start with '-'")
	}
	if !branchPattern.MatchString(branch) {
		return fmt.Errorf("branch name contains invalid characters")
	}
	return nil
}

// ValidateRuleName ensures a rule name is safe for logs, lock keys and /status output.
func ValidateRuleName(name string) error {
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("rule name cannot start with '-' or '.'")
	}
	if !ruleNamePattern.MatchString(name) {
		return fmt.Errorf("rule name contains invalid characters (only a-z, A-Z, 0-9, _, -, ., # allowed)")
	}
	return nil
}

// ValidateWebhookPath checks the URL path the webhook is served on.
func ValidateWebhookPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with '/', got %q", path)
	}
	if !webhookPathChars.MatchString(path) {
		return fmt.Errorf("path %q contains invalid characters", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path %q contains traversal elements", path)
	}
	for _, reserved := range ReservedPaths {
		if path == reserved || strings.HasPrefix(path, reserved+"/") {
			return fmt.Errorf("path %q collides with the built-in %s endpoint", path, reserved)
		}
	}
	return nil
}

// ValidateHookURL ensures the URL registered with GitHub is absolute and uses HTTPS.
// Plain HTTP is accepted only for loopback hosts.
func ValidateHookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}

	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("only HTTPS URLs allowed for non-local hosts, got %s://%s", u.Scheme, u.Host)
		}
	default:
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	return nil
}
