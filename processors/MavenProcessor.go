package processors

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"regexp"
)

type MavenProcessor struct{}

func (MavenProcessor) Supports(filePath string) bool {
	return filepath.Base(filePath) == "pom.xml"
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

type pomProject struct {
	XMLName      xml.Name        `xml:"project"`
	Version      string          `xml:"version"`
	Properties   pomProperties   `xml:"properties"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Managed      []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
}

// pomProperties collects the free-form children of <properties>.
type pomProperties map[string]string

func (p *pomProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*p = pomProperties{}
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = value
		case xml.EndElement:
			return nil
		}
	}
}

var pomPropertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func (p pomProject) resolve(value string) string {
	return pomPropertyRef.ReplaceAllStringFunc(value, func(ref string) string {
		key := ref[2 : len(ref)-1]
		if key == "project.version" {
			return p.Version
		}
		if v, ok := p.Properties[key]; ok {
			return v
		}
		return ref
	})
}

func (MavenProcessor) Process(path string, content []byte) ([]Dependency, error) {
	var project pomProject
	if err := xml.Unmarshal(content, &project); err != nil {
		return nil, fmt.Errorf("failed to parse pom.xml '%s': %w", path, err)
	}

	managed := map[string]string{}
	for _, dep := range project.Managed {
		managed[dep.GroupID+":"+dep.ArtifactID] = project.resolve(dep.Version)
	}

	deps := make([]Dependency, 0, len(project.Dependencies))
	for _, dep := range project.Dependencies {
		name := fmt.Sprintf("%s:%s", dep.GroupID, dep.ArtifactID)
		version := project.resolve(dep.Version)
		if version == "" {
			version = managed[name]
		}
		scope := dep.Scope
		if scope == "" {
			scope = "compile"
		}
		deps = append(deps, Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: EcosystemMaven,
			Kind:      scope,
		})
	}
	return deps, nil
}
