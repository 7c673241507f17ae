package scanners

import (
	"context"
	"fmt"

	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// GitlabScanner scans every unarchived project visible to the token.
type GitlabScanner struct {
	Suite            Suite
	GitlabApi        utils.GitlabApi
	GitClient        utils.GitApi
	ProgressReporter utils.ProgressReporter
}

func (g GitlabScanner) Scan(ctx context.Context) (bool, error) {
	projects, err := g.GitlabApi.ListAllProjects(ctx)
	if err != nil {
		return false, fmt.Errorf("error listing projects: %w", err)
	}
	if len(projects) == 0 {
		return false, fmt.Errorf("no projects found on %s", g.GitlabApi.BaseURL())
	}
	log.Infof("Scanning %d projects", len(projects))

	remotes := make([]Remote, 0, len(projects))
	for _, project := range projects {
		remotes = append(remotes, Remote{
			Name:     project.PathWithNamespace,
			CloneURL: project.HTTPURLToRepo,
			Token:    g.GitlabApi.Token(),
		})
	}
	return g.Suite.ScanRemotes(ctx, g.GitClient, remotes, g.ProgressReporter)
}
