package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.etcd.io/bbolt"
)

const CacheDirName = ".salus_cache"
const BucketName = "Projects"

type GitlabApi interface {
	ListAllProjects(ctx context.Context) ([]*gitlab.Project, error)
	Token() string
	BaseURL() string
}

type GitlabApiClient struct {
	client   *gitlab.Client
	baseUrl  string
	token    string
	noCache  bool
	cacheDir string
}

func NewGitlabApiClient(gitlabToken, gitlabBaseURL string, noCache bool) (*GitlabApiClient, error) {
	if gitlabToken == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	client, err := gitlab.NewClient(gitlabToken, gitlab.WithBaseURL(gitlabBaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return &GitlabApiClient{
		client:   client,
		baseUrl:  gitlabBaseURL,
		token:    gitlabToken,
		noCache:  noCache,
		cacheDir: filepath.Join(homeDir, CacheDirName),
	}, nil
}

func (g GitlabApiClient) Token() string {
	return g.token
}

func (g GitlabApiClient) BaseURL() string {
	return g.baseUrl
}

// ListAllProjects serves from the project cache when it holds anything and
// falls back to the API otherwise.
func (g GitlabApiClient) ListAllProjects(ctx context.Context) ([]*gitlab.Project, error) {
	if !g.noCache {
		projects, err := LoadProjectsFromCache(g.cacheFile())
		if err == nil && len(projects) > 0 {
			log.Infof("Loaded %d projects from cache.", len(projects))
			return projects, nil
		}
		if err != nil {
			log.Debugf("Failed to load from cache, proceeding with API fetch: %v", err)
		}
	}
	return g.fetchAllProjects(ctx)
}

func (g GitlabApiClient) fetchAllProjects(ctx context.Context) ([]*gitlab.Project, error) {
	var allProjects []*gitlab.Project
	opts := &gitlab.ListProjectsOptions{
		Archived:    gitlab.Ptr(false),
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
	}

	for {
		projects, resp, err := g.client.Projects.ListProjects(opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		allProjects = append(allProjects, projects...)
		log.Debugf("Fetched %d projects, total so far: %d", len(projects), len(allProjects))

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if !g.noCache {
		if err := SaveProjectsToCache(g.cacheFile(), allProjects); err != nil {
			log.Warnf("Failed to save to cache: %v", err)
		}
	}
	log.Infof("Number of projects found: %d", len(allProjects))
	return allProjects, nil
}

func (g GitlabApiClient) cacheFile() string {
	return filepath.Join(g.cacheDir, fmt.Sprintf("%s_projects_cache.db", Sanitize(g.baseUrl)))
}

// LoadProjectsFromCache reads every project stored in the bbolt file.
func LoadProjectsFromCache(cacheFile string) ([]*gitlab.Project, error) {
	if _, err := os.Stat(cacheFile); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(cacheFile, 0600, nil)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var projects []*gitlab.Project
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.ForEach(func(k, v []byte) error {
			var project gitlab.Project
			if err := json.Unmarshal(v, &project); err != nil {
				return err
			}
			projects = append(projects, &project)
			return nil
		})
	})
	return projects, err
}

// SaveProjectsToCache stores projects keyed by their namespaced path.
func SaveProjectsToCache(cacheFile string, projects []*gitlab.Project) error {
	if err := os.MkdirAll(filepath.Dir(cacheFile), 0755); err != nil {
		return err
	}
	db, err := bbolt.Open(cacheFile, 0600, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, project := range projects {
			data, err := json.Marshal(project)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(project.PathWithNamespace), data); err != nil {
				return err
			}
		}
		return nil
	})
}
