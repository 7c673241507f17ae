package processors

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
)

type NodeProcessor struct{}

func (NodeProcessor) Supports(filePath string) bool {
	return filepath.Base(filePath) == "package.json"
}

var nodeDependencySections = []struct {
	key  string
	kind string
}{
	{"dependencies", "runtime"},
	{"devDependencies", "dev"},
	{"peerDependencies", "peer"},
	{"optionalDependencies", "optional"},
}

func (NodeProcessor) Process(path string, content []byte) ([]Dependency, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("failed to parse package.json '%s': invalid JSON", path)
	}

	var deps []Dependency
	for _, section := range nodeDependencySections {
		var names []string
		versions := map[string]string{}
		gjson.GetBytes(content, section.key).ForEach(func(key, value gjson.Result) bool {
			names = append(names, key.String())
			versions[key.String()] = value.String()
			return true
		})
		sort.Strings(names)
		for _, name := range names {
			deps = append(deps, Dependency{
				Name:      name,
				Version:   versions[name],
				Ecosystem: EcosystemNpm,
				Kind:      section.kind,
			})
		}
	}
	return deps, nil
}
