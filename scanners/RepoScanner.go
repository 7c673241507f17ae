package scanners

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/repositories"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

var (
	// MaxWorkers sets the number of repositories scanned in parallel.
	MaxWorkers = runtime.NumCPU()
	// CloneBaseDir is where remote repositories get cloned to.
	CloneBaseDir = filepath.Join(os.TempDir(), "salus")
)

// Suite runs the scanners against one local checkout and stores the outcome.
type Suite struct {
	Runner Runner
	Events repositories.EventRepository
}

// ScanPath scans the checkout at path, stores the outcome and reports
// whether it passed.
func (s Suite) ScanPath(ctx context.Context, path, name string) (bool, error) {
	set, err := s.scan(ctx, path, name)
	if err != nil {
		return false, err
	}
	return set.Passed, s.store(set)
}

func (s Suite) scan(ctx context.Context, path, name string) (repositories.EventSet, error) {
	repository, err := core.NewRepository(path, name)
	if err != nil {
		return repositories.EventSet{}, err
	}
	report, err := s.Runner.ScanRepository(ctx, repository)
	if err != nil {
		return repositories.EventSet{}, fmt.Errorf("failed to scan '%s': %w", name, err)
	}
	return repositories.EventSet{Repository: name, Passed: report.Passed(), Events: report.Events()}, nil
}

func (s Suite) store(set repositories.EventSet) error {
	if err := s.Events.Store(set); err != nil {
		return fmt.Errorf("failed to store events of '%s': %w", set.Repository, err)
	}
	log.WithFields(log.Fields{"repository": set.Repository, "passed": set.Passed}).Infof("Recorded %d events", len(set.Events))
	return nil
}

// Remote is a repository that must be cloned before it is scanned.
type Remote struct {
	Name     string
	CloneURL string
	Token    string
}

type remoteResult struct {
	name string
	set  repositories.EventSet
	err  error
}

// ScanRemotes clones and scans remotes on a pool of workers, removing every
// clone afterwards. Results are stored as they arrive. It reports whether
// every remote passed; remotes that cannot be cloned or scanned are logged
// and count as failed.
func (s Suite) ScanRemotes(ctx context.Context, git utils.GitApi, remotes []Remote, progress utils.ProgressReporter) (bool, error) {
	if err := os.MkdirAll(CloneBaseDir, os.ModePerm); err != nil {
		return false, fmt.Errorf("failed to create clone base directory '%s': %w", CloneBaseDir, err)
	}
	progress.SetTotal(len(remotes))

	jobs := make(chan Remote)
	results := make(chan remoteResult)

	var wg sync.WaitGroup
	for i := 0; i < min(MaxWorkers, len(remotes)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for remote := range jobs {
				set, err := s.scanRemote(ctx, git, remote)
				results <- remoteResult{name: remote.Name, set: set, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, remote := range remotes {
			select {
			case jobs <- remote:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	passed := true
	for res := range results {
		progress.Increment()
		if res.err == nil {
			res.err = s.store(res.set)
		}
		if res.err != nil {
			log.Errorf("Error processing repository '%s': %v", res.name, res.err)
			passed = false
			continue
		}
		passed = passed && res.set.Passed
	}
	progress.Finish()
	return passed, ctx.Err()
}

func (s Suite) scanRemote(ctx context.Context, git utils.GitApi, remote Remote) (repositories.EventSet, error) {
	path := filepath.Join(CloneBaseDir, utils.SanitizeRepoName(remote.Name))
	defer func() {
		if err := os.RemoveAll(path); err != nil {
			log.Warnf("Failed to remove %q: %v", path, err)
		}
	}()

	if err := git.NewClone(ctx, remote.CloneURL, path).WithToken(remote.Token).Clone(); err != nil {
		return repositories.EventSet{}, fmt.Errorf("failed to clone '%s': %w", remote.Name, err)
	}
	return s.scan(ctx, path, remote.Name)
}

// RepoScanner scans a single repository given by its clone URL.
type RepoScanner struct {
	Suite     Suite
	GitClient utils.GitApi
	Token     string
}

func (r RepoScanner) Scan(ctx context.Context, repoURL string) (bool, error) {
	name, err := utils.ExtractRepoName(repoURL)
	if err != nil {
		return false, err
	}
	log.Infof("Scanning repository: %s", name)
	return r.Suite.ScanRemotes(ctx, r.GitClient, []Remote{{Name: name, CloneURL: repoURL, Token: r.Token}}, utils.NoopProgressReporter{})
}
