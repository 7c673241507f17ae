package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	log "github.com/sirupsen/logrus"
)

// GitApi clones repositories.
type GitApi interface {
	NewClone(ctx context.Context, cloneURL, destination string) Cloner
}

// Cloner is a single configurable clone.
type Cloner interface {
	WithToken(token string) Cloner
	WithBare(bare bool) Cloner
	WithDepth(depth int) Cloner
	Clone() error
}

type GitClient struct {
	Progress io.Writer
}

func (g GitClient) NewClone(ctx context.Context, cloneURL, destination string) Cloner {
	return &gitClone{ctx: ctx, url: cloneURL, destination: destination, progress: g.Progress}
}

type gitClone struct {
	ctx         context.Context
	url         string
	destination string
	token       string
	bare        bool
	depth       int
	progress    io.Writer
}

func (c *gitClone) WithToken(token string) Cloner {
	c.token = token
	return c
}

func (c *gitClone) WithBare(bare bool) Cloner {
	c.bare = bare
	return c
}

func (c *gitClone) WithDepth(depth int) Cloner {
	c.depth = depth
	return c
}

// Clone skips destinations that already exist.
func (c *gitClone) Clone() error {
	if _, err := os.Stat(c.destination); err == nil {
		log.Debugf("Repository already cloned at '%s'. Skipping clone.", c.destination)
		return nil
	}

	opts := &git.CloneOptions{
		URL:      c.url,
		Progress: c.progress,
		Depth:    c.depth,
	}
	if c.token != "" {
		// GitHub and GitLab both accept any non-empty user name with a token.
		opts.Auth = &githttp.BasicAuth{Username: "oauth2", Password: c.token}
	}

	if _, err := git.PlainCloneContext(c.ctx, c.destination, c.bare, opts); err != nil {
		_ = os.RemoveAll(c.destination)
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// ExtractRepoName returns the owner/name part of an HTTPS or SSH clone URL.
func ExtractRepoName(repoURL string) (string, error) {
	var path string
	switch {
	case strings.HasPrefix(repoURL, "git@"):
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			return "", fmt.Errorf("unexpected repository URL format: %s", repoURL)
		}
		path = parts[1]
	case strings.HasPrefix(repoURL, "https://"), strings.HasPrefix(repoURL, "http://"):
		rest := repoURL[strings.Index(repoURL, "://")+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 || slash == len(rest)-1 {
			return "", fmt.Errorf("unexpected repository URL format: %s", repoURL)
		}
		path = rest[slash+1:]
	default:
		return "", fmt.Errorf("unsupported repository URL format: %s", repoURL)
	}
	return strings.TrimSuffix(strings.Trim(path, "/"), ".git"), nil
}

func SanitizeRepoName(fullName string) string {
	return strings.ReplaceAll(fullName, "/", "_")
}
