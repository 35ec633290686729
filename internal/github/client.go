// Package github registers hookbox webhooks on GitHub repositories.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"hookbox/internal/security"
)

// DefaultEvents are subscribed when HookOptions.Events is empty.
var DefaultEvents = []string{"push"}

// ErrNoToken is returned by NewClient without a token.
var ErrNoToken = errors.New("a GitHub token is required")

// Client talks to the GitHub REST API with a personal access token.
type Client struct {
	gh *gh.Client
}

// NewClient creates an authenticated client. baseURL is optional and points
// the client at GitHub Enterprise or a test server.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{gh: client}, nil
}

// HookOptions describes the webhook to register.
type HookOptions struct {
	URL         string
	Secret      string
	Events      []string
	InsecureSSL bool
}

// EnsureHook makes sure ownerRepo has a webhook delivering to opts.URL.
// It reports whether a new hook was created; an existing hook with the same
// URL is left untouched.
func (c *Client) EnsureHook(ctx context.Context, ownerRepo string, opts HookOptions) (bool, error) {
	owner, repo, err := splitRepository(ownerRepo)
	if err != nil {
		return false, err
	}
	if err := security.ValidateHookURL(opts.URL); err != nil {
		return false, err
	}
	if opts.Secret == "" {
		return false, fmt.Errorf("a webhook secret is required")
	}

	existing, err := c.findHook(ctx, owner, repo, opts.URL)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	events := opts.Events
	if len(events) == 0 {
		events = DefaultEvents
	}

	insecure := "0"
	if opts.InsecureSSL {
		insecure = "1"
	}

	hook := &gh.Hook{
		Events: events,
		Active: gh.Bool(true),
		Config: map[string]interface{}{
			"url":          opts.URL,
			"content_type": "json",
			"secret":       opts.Secret,
			"insecure_ssl": insecure,
		},
	}

	if _, _, err := c.gh.Repositories.CreateHook(ctx, owner, repo, hook); err != nil {
		return false, fmt.Errorf("creating webhook: %w", err)
	}

	return true, nil
}

func (c *Client) findHook(ctx context.Context, owner, repo, hookURL string) (*gh.Hook, error) {
	opts := &gh.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := c.gh.Repositories.ListHooks(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing webhooks: %w", err)
		}

		for _, hook := range hooks {
			if u, ok := hook.Config["url"].(string); ok && u == hookURL {
				return hook, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func splitRepository(ownerRepo string) (string, string, error) {
	if err := security.ValidateRepository(ownerRepo); err != nil {
		return "", "", err
	}
	owner, repo, _ := strings.Cut(ownerRepo, "/")
	return owner, repo, nil
}
