package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/concierge/internal/common"
	"golang.org/x/oauth2"
)

// Connector reads documents from one folder of a GitHub repository
type Connector struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	path   string
}

// NewConnector creates a connector for the configured repository folder.
// The token is optional; public repositories can be read anonymously.
func NewConnector(config common.GitHubSourceConfig) (*Connector, error) {
	if config.Owner == "" || config.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	var client *github.Client
	if config.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: config.Token},
		)
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		client = github.NewClient(nil)
	}

	if config.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(config.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = baseURL
	}

	branch := config.Branch
	if branch == "" {
		branch = "main"
	}

	return &Connector{
		client: client,
		owner:  config.Owner,
		repo:   config.Repo,
		branch: branch,
		path:   strings.Trim(config.Path, "/"),
	}, nil
}

// Repository returns "owner/repo@branch" for logs
func (c *Connector) Repository() string {
	return fmt.Sprintf("%s/%s@%s", c.owner, c.repo, c.branch)
}

// Folder returns the repository folder the connector is scoped to
func (c *Connector) Folder() string {
	return c.path
}

// TestConnection verifies the repository is reachable
func (c *Connector) TestConnection(ctx context.Context) error {
	_, _, err := c.client.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return fmt.Errorf("github connection test failed: %w", err)
	}
	return nil
}
