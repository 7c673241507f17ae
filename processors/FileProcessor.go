package processors

// Ecosystems a Dependency can belong to.
const (
	EcosystemGo        = "go"
	EcosystemNpm       = "npm"
	EcosystemPypi      = "pypi"
	EcosystemMaven     = "maven"
	EcosystemDocker    = "docker"
	EcosystemTerraform = "terraform"
)

// Dependency is one entry declared by a manifest file.
type Dependency struct {
	Name      string
	Version   string
	Ecosystem string
	// Kind separates entries of the same manifest, e.g. "dev" or "provider".
	Kind string
	// Extra carries manifest specific fields.
	Extra map[string]any
}

// Info renders the dependency as a dependency-info entry body.
func (d Dependency) Info() map[string]any {
	info := map[string]any{
		"name":      d.Name,
		"version":   d.Version,
		"ecosystem": d.Ecosystem,
	}
	if d.Kind != "" {
		info["kind"] = d.Kind
	}
	for k, v := range d.Extra {
		info[k] = v
	}
	return info
}

// FileProcessor extracts dependencies from the manifests it supports.
type FileProcessor interface {
	Supports(filePath string) bool
	Process(path string, content []byte) ([]Dependency, error)
}
