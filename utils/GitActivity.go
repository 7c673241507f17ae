package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/markusmobius/go-dateparser"
)

// GitActivity summarises history recorded after a cutoff.
type GitActivity struct {
	Branches               []string  `json:"branches"`
	TagCount               int       `json:"tag_count"`
	AverageDaysBetweenTags float64   `json:"average_days_between_tags"`
	TotalCommits           int       `json:"total_commits"`
	UniqueContributors     int       `json:"unique_contributors"`
	FirstCommit            time.Time `json:"first_commit"`
	LastCommit             time.Time `json:"last_commit"`
	MaxCommitsPerDay       int       `json:"max_commits_per_day"`
	AverageCommitsPerDay   float64   `json:"average_commits_per_day"`
	MaxCommitsPerWeek      int       `json:"max_commits_per_week"`
	AverageCommitsPerWeek  float64   `json:"average_commits_per_week"`
}

// GitMetrics collects activity for the repository at repoPath.
type GitMetrics interface {
	CollectGitActivity(ctx context.Context, repoPath string, cutoff time.Time) (GitActivity, error)
}

type GitMetricsClient struct{}

// ParseCutoff understands absolute and relative dates such as "6 months ago".
// An empty string means no cutoff and returns the zero time.
func ParseCutoff(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}
	parsed, err := dateparser.Parse(nil, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date string '%s': %w", dateStr, err)
	}
	return parsed.Time, nil
}

// CollectGitActivity stops walking history as soon as ctx is done.
func (GitMetricsClient) CollectGitActivity(ctx context.Context, repoPath string, cutoff time.Time) (GitActivity, error) {
	var activity GitActivity

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return activity, fmt.Errorf("failed to open git repository: %w", err)
	}

	if activity.Branches, err = activeBranches(repo, cutoff); err != nil {
		return activity, err
	}
	if err := collectTags(repo, cutoff, &activity); err != nil {
		return activity, err
	}
	if err := collectCommits(ctx, repo, cutoff, &activity); err != nil {
		return activity, err
	}
	return activity, nil
}

func after(t, cutoff time.Time) bool {
	return cutoff.IsZero() || !t.Before(cutoff)
}

func activeBranches(repo *git.Repository, cutoff time.Time) ([]string, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve branches: %w", err)
	}

	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() && !ref.Name().IsBranch() {
			return nil
		}
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("failed to read commit for branch %s: %w", ref.Name(), err)
		}
		if after(commit.Author.When, cutoff) {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func collectTags(repo *git.Repository, cutoff time.Time, activity *GitActivity) error {
	tags, err := repo.Tags()
	if err != nil {
		return fmt.Errorf("failed to retrieve tags: %w", err)
	}

	var dates []time.Time
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		var when time.Time
		if tag, err := repo.TagObject(ref.Hash()); err == nil {
			when = tag.Tagger.When
		} else if commit, err := repo.CommitObject(ref.Hash()); err == nil {
			when = commit.Committer.When
		}
		if after(when, cutoff) {
			dates = append(dates, when)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to iterate over tags: %w", err)
	}

	activity.TagCount = len(dates)
	if len(dates) > 1 {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		span := dates[len(dates)-1].Sub(dates[0])
		activity.AverageDaysBetweenTags = span.Hours() / 24 / float64(len(dates)-1)
	}
	return nil
}

func collectCommits(ctx context.Context, repo *git.Repository, cutoff time.Time, activity *GitActivity) error {
	iter, err := repo.Log(&git.LogOptions{All: true})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to retrieve commit history: %w", err)
	}

	perDay := map[string]int{}
	perWeek := map[string]int{}
	authors := map[string]struct{}{}
	seen := map[plumbing.Hash]struct{}{}

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := seen[c.Hash]; ok {
			return nil
		}
		seen[c.Hash] = struct{}{}

		when := c.Committer.When
		if !after(when, cutoff) {
			return nil
		}
		year, week := when.ISOWeek()
		perDay[when.Format("2006-01-02")]++
		perWeek[fmt.Sprintf("%d-W%d", year, week)]++
		authors[c.Author.Email] = struct{}{}

		if activity.FirstCommit.IsZero() || when.Before(activity.FirstCommit) {
			activity.FirstCommit = when
		}
		if when.After(activity.LastCommit) {
			activity.LastCommit = when
		}
		activity.TotalCommits++
		return nil
	})
	if err != nil {
		return fmt.Errorf("error processing commits: %w", err)
	}

	activity.UniqueContributors = len(authors)
	activity.MaxCommitsPerDay, activity.AverageCommitsPerDay = maxAndAverage(perDay)
	activity.MaxCommitsPerWeek, activity.AverageCommitsPerWeek = maxAndAverage(perWeek)
	return nil
}

func maxAndAverage(counts map[string]int) (int, float64) {
	var max, total int
	for _, count := range counts {
		total += count
		if count > max {
			max = count
		}
	}
	if len(counts) == 0 {
		return 0, 0
	}
	return max, float64(total) / float64(len(counts))
}
