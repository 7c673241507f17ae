package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// GithubOrgScanner scans every unarchived repository of an organization.
type GithubOrgScanner struct {
	Suite            Suite
	GithubClient     utils.GithubApi
	GitClient        utils.GitApi
	ProgressReporter utils.ProgressReporter
}

func (g GithubOrgScanner) Scan(ctx context.Context, orgName string) (bool, error) {
	log.Infof("Fetching repos for organization: %s", orgName)
	repos, err := g.GithubClient.ListRepositories(ctx, orgName)
	if err != nil {
		return false, err
	}
	if len(repos) == 0 {
		return false, fmt.Errorf("no repos found in organization '%s'", orgName)
	}

	remotes := make([]Remote, 0, len(repos))
	for _, repo := range repos {
		remotes = append(remotes, Remote{
			Name:     repo.GetFullName(),
			CloneURL: repo.GetCloneURL(),
			Token:    g.GithubClient.Token(),
		})
	}
	return g.Suite.ScanRemotes(ctx, g.GitClient, remotes, g.ProgressReporter)
}
