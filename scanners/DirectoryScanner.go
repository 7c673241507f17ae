package scanners

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// DirectoryScanner scans a local directory. With Recursive set every
// top-level sub-directory is scanned as a repository of its own.
type DirectoryScanner struct {
	Suite     Suite
	Recursive bool
}

func (d DirectoryScanner) Scan(ctx context.Context, directory string) (bool, error) {
	if !d.Recursive {
		abs, err := filepath.Abs(directory)
		if err != nil {
			return false, err
		}
		return d.Suite.ScanPath(ctx, abs, filepath.Base(abs))
	}

	dirs, err := listTopLevelDirectories(directory)
	if err != nil {
		return false, fmt.Errorf("failed to list directories in '%s': %w", directory, err)
	}
	if len(dirs) == 0 {
		log.Info("No top-level directories found to scan.")
		return true, nil
	}

	passed := true
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		log.Infof("Processing directory: %s", dir)
		ok, err := d.Suite.ScanPath(ctx, dir, filepath.Base(dir))
		if err != nil {
			log.Errorf("Error scanning directory '%s': %v", dir, err)
			passed = false
			continue
		}
		passed = passed && ok
	}
	return passed, nil
}

func listTopLevelDirectories(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var directories []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != ".git" {
			directories = append(directories, filepath.Join(path, entry.Name()))
		}
	}
	return directories, nil
}
