package processors

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type DockerComposeService struct {
	Image string `yaml:"image,omitempty"`
}

type DockerComposeFile struct {
	Services map[string]DockerComposeService `yaml:"services,omitempty"`
}

// DockerComposeProcessor reports the image of each compose service. Services
// that are built locally have no image and are skipped.
type DockerComposeProcessor struct{}

func (DockerComposeProcessor) Supports(filePath string) bool {
	lower := strings.ToLower(filepath.Base(filePath))
	return lower == "docker-compose.yml" || lower == "docker-compose.yaml" ||
		lower == "compose.yml" || lower == "compose.yaml"
}

func (DockerComposeProcessor) Process(path string, content []byte) ([]Dependency, error) {
	var compose DockerComposeFile
	if err := yaml.Unmarshal(content, &compose); err != nil {
		return nil, fmt.Errorf("failed to parse docker-compose file '%s': %w", path, err)
	}

	services := make([]string, 0, len(compose.Services))
	for name := range compose.Services {
		services = append(services, name)
	}
	sort.Strings(services)

	var deps []Dependency
	for _, service := range services {
		image := compose.Services[service].Image
		if image == "" {
			continue
		}
		name, version := SplitImageReference(image)
		deps = append(deps, Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: EcosystemDocker,
			Kind:      "service_image",
			Extra:     map[string]any{"service": service},
		})
	}
	return deps, nil
}
