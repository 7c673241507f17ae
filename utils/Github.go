package utils

import (
	"context"
	"fmt"

	"github.com/google/go-github/v50/github"
	"golang.org/x/oauth2"
)

type GithubApi interface {
	ListRepositories(ctx context.Context, org string) ([]*github.Repository, error)
	Token() string
}

type GithubApiClient struct {
	client *github.Client
	token  string
}

// NewGithubApiClient authenticates with token when one is given.
func NewGithubApiClient(token string) GithubApiClient {
	if token == "" {
		return GithubApiClient{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return GithubApiClient{client: github.NewClient(tc), token: token}
}

func (c GithubApiClient) Token() string {
	return c.token
}

// ListRepositories pages through every repository of org, skipping archived
// ones.
func (c GithubApiClient) ListRepositories(ctx context.Context, org string) ([]*github.Repository, error) {
	var allRepos []*github.Repository
	opt := &github.RepositoryListByOrgOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of '%s': %w", org, err)
		}
		for _, repo := range repos {
			if !repo.GetArchived() {
				allRepos = append(allRepos, repo)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return allRepos, nil
}
