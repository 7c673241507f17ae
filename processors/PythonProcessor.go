package processors

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

type PythonProcessor struct{}

func (PythonProcessor) Supports(filePath string) bool {
	base := filepath.Base(filePath)
	return base == "requirements.txt" || base == "pyproject.toml"
}

func (p PythonProcessor) Process(path string, content []byte) ([]Dependency, error) {
	if filepath.Base(path) == "pyproject.toml" {
		return p.parsePyProject(path, content)
	}
	return p.parseRequirements(content)
}

var versionSpecifiers = []string{"===", "==", ">=", "<=", "~=", "!=", ">", "<"}

// splitRequirement separates "name<specifier>" into name and specifier.
// Extras and environment markers are dropped.
func splitRequirement(line string) (string, string) {
	if i := strings.Index(line, ";"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if i := strings.Index(line, " @ "); i >= 0 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+3:])
	}

	cut, spec := len(line), ""
	for _, s := range versionSpecifiers {
		if i := strings.Index(line, s); i >= 0 && i < cut {
			cut = i
		}
	}
	if cut < len(line) {
		spec = strings.TrimSpace(line[cut:])
	}
	name := strings.TrimSpace(line[:cut])
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	return name, spec
}

func (PythonProcessor) parseRequirements(content []byte) ([]Dependency, error) {
	var deps []Dependency
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		// Options such as -r, -e and --index-url are not packages.
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, spec := splitRequirement(line)
		if name == "" {
			continue
		}
		deps = append(deps, Dependency{Name: name, Version: spec, Ecosystem: EcosystemPypi})
	}
	return deps, scanner.Err()
}

type pyProject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (PythonProcessor) parsePyProject(path string, content []byte) ([]Dependency, error) {
	var py pyProject
	if _, err := toml.Decode(string(content), &py); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml '%s': %w", path, err)
	}

	var deps []Dependency
	for _, req := range py.Project.Dependencies {
		name, spec := splitRequirement(req)
		deps = append(deps, Dependency{Name: name, Version: spec, Ecosystem: EcosystemPypi, Kind: "runtime"})
	}
	groups := make([]string, 0, len(py.Project.OptionalDependencies))
	for group := range py.Project.OptionalDependencies {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		for _, req := range py.Project.OptionalDependencies[group] {
			name, spec := splitRequirement(req)
			deps = append(deps, Dependency{Name: name, Version: spec, Ecosystem: EcosystemPypi, Kind: "optional:" + group})
		}
	}

	deps = append(deps, poetryDependencies(py.Tool.Poetry.Dependencies, "runtime")...)
	deps = append(deps, poetryDependencies(py.Tool.Poetry.DevDependencies, "dev")...)
	return deps, nil
}

// poetryDependencies accepts both the short `name = "^1.0"` form and the
// table form `name = { version = "^1.0" }`.
func poetryDependencies(section map[string]any, kind string) []Dependency {
	names := make([]string, 0, len(section))
	for name := range section {
		if name != "python" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		var version string
		switch v := section[name].(type) {
		case string:
			version = v
		case map[string]any:
			version, _ = v["version"].(string)
		}
		deps = append(deps, Dependency{Name: name, Version: version, Ecosystem: EcosystemPypi, Kind: kind})
	}
	return deps
}
