package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
)

const (
	// MinSecretLength is the minimum length ValidateSecret accepts.
	MinSecretLength = 32

	// MinEntropy is the minimum Shannon entropy (bits per character) ValidateSecret accepts.
	MinEntropy = 3.5

	// GeneratedSecretBytes of randomness encode to a 48-character secret.
	GeneratedSecretBytes = 36
)

// Values that show up in example configs and tutorials.
var placeholderSecrets = map[string]bool{
	"replace-with-secret":   true,
	"your-webhook-secret":   true,
	"github-webhook-secret": true,
	"hookbox":               true,
	"hookbox-secret":        true,
	"topsecret":             true,
	"secret":                true,
	"password":              true,
	"changeme":              true,
}

var placeholderFragments = []string{"replace", "changeme", "topsecret", "password", "example"}

// ValidateSecret reports why a webhook secret is unfit for production use,
// or nil when it is long, random-looking and not a known placeholder.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret too short (minimum %d characters, got %d)", MinSecretLength, len(secret))
	}

	lower := strings.ToLower(secret)
	if placeholderSecrets[lower] {
		return fmt.Errorf("secret appears to be a placeholder value, please use a real secret")
	}
	for _, fragment := range placeholderFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("secret appears to be a placeholder value (contains %q)", fragment)
		}
	}

	if entropy := calculateEntropy(secret); entropy < MinEntropy {
		return fmt.Errorf("secret has insufficient entropy (%.2f < %.2f) - use a more random secret", entropy, MinEntropy)
	}

	return nil
}

// GenerateSecret returns a URL-safe random secret suitable for a GitHub webhook.
func GenerateSecret() (string, error) {
	buf := make([]byte, GeneratedSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// calculateEntropy computes the Shannon entropy of s: H = -Σ p(x) log2 p(x).
func calculateEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, c := range s {
		freq[c]++
	}

	var entropy float64
	length := float64(len(s))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// IsWeakSecret is a lenient check used for warnings. It flags secrets that are
// short, a single repeated character, mostly sequential or of very low entropy.
func IsWeakSecret(secret string) bool {
	if len(secret) < 16 {
		return true
	}

	if strings.Trim(secret, secret[:1]) == "" {
		return true
	}

	if isSequential(secret) {
		return true
	}

	if placeholderSecrets[strings.ToLower(secret)] {
		return true
	}

	return calculateEntropy(secret) < 2.5
}

// isSequential reports whether more than 70% of adjacent characters differ by one.
func isSequential(s string) bool {
	if len(s) < 4 {
		return false
	}

	sequential := 0
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 || s[i] == s[i-1]-1 {
			sequential++
		}
	}

	return float64(sequential) > float64(len(s))*0.7
}
