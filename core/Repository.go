package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// skippedDirs are never descended into when walking a repository.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

var errStopWalk = errors.New("stop walk")

// Repository is a read-only handle on the checked out code being scanned.
type Repository struct {
	Path string
	Name string
}

// NewRepository returns a handle on the directory at path.
func NewRepository(path, name string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository path '%s': %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access repository '%s': %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s' is not a directory", path)
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	return &Repository{Path: abs, Name: name}, nil
}

// Abs resolves a repository relative path.
func (r *Repository) Abs(rel string) string {
	return filepath.Join(r.Path, filepath.FromSlash(rel))
}

// HasFile reports whether rel exists as a regular file at the repository root.
func (r *Repository) HasFile(rel string) bool {
	info, err := os.Stat(r.Abs(rel))
	return err == nil && info.Mode().IsRegular()
}

func (r *Repository) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(r.Abs(rel))
}

// IsGitRepository reports whether the repository root holds a .git entry.
func (r *Repository) IsGitRepository() bool {
	_, err := os.Stat(r.Abs(".git"))
	return err == nil
}

// Walk calls fn with the slash separated relative path of every regular file.
func (r *Repository) Walk(fn func(rel string) error) error {
	return filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.Path && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel))
	})
}

// FindFiles returns every file accepted by match.
func (r *Repository) FindFiles(match func(rel string) bool) ([]string, error) {
	var files []string
	err := r.Walk(func(rel string) error {
		if match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository '%s': %w", r.Name, err)
	}
	return files, nil
}

// ContainsFile reports whether at least one file is accepted by match. The
// walk stops at the first hit.
func (r *Repository) ContainsFile(match func(rel string) bool) (bool, error) {
	found := false
	err := r.Walk(func(rel string) error {
		if match(rel) {
			found = true
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return false, fmt.Errorf("failed to walk repository '%s': %w", r.Name, err)
	}
	return found, nil
}

// IsEmpty reports whether the repository holds no files outside .git.
func (r *Repository) IsEmpty() (bool, error) {
	found, err := r.ContainsFile(func(string) bool { return true })
	return !found, err
}
