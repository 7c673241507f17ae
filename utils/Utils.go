package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

func Contains[T comparable](slice []T, element T) bool {
	for _, v := range slice {
		if v == element {
			return true
		}
	}
	return false
}

// GenerateRandomFilename returns a unique file name with the given extension.
func GenerateRandomFilename(extension string) string {
	return fmt.Sprintf("%s.%s", uuid.New().String(), extension)
}

// Sanitize turns a URL or repository path into something usable as a file
// name.
func Sanitize(name string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(name, "https://"), "http://")
	s = strings.NewReplacer("/", "_", ":", "_").Replace(s)
	return strings.ToLower(s)
}

// CountFiles returns the number of regular files directly inside dirPath.
func CountFiles(dirPath string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			count++
		}
	}
	return count, nil
}
