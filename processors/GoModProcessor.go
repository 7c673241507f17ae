package processors

import (
	"fmt"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

type GoModProcessor struct{}

func (GoModProcessor) Supports(filePath string) bool {
	return filepath.Base(filePath) == "go.mod"
}

// Process lists every require directive. Replacements are recorded against
// the module they replace.
func (GoModProcessor) Process(path string, content []byte) ([]Dependency, error) {
	file, err := modfile.Parse(path, content, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.mod '%s': %w", path, err)
	}

	replaced := map[string]string{}
	for _, r := range file.Replace {
		target := r.New.Path
		if r.New.Version != "" {
			target += "@" + r.New.Version
		}
		replaced[r.Old.Path] = target
	}

	deps := make([]Dependency, 0, len(file.Require))
	for _, req := range file.Require {
		kind := "direct"
		if req.Indirect {
			kind = "indirect"
		}
		dep := Dependency{
			Name:      req.Mod.Path,
			Version:   req.Mod.Version,
			Ecosystem: EcosystemGo,
			Kind:      kind,
		}
		if target, ok := replaced[req.Mod.Path]; ok {
			dep.Extra = map[string]any{"replaced_by": target}
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
