package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoModProcessor_Process(t *testing.T) {
	content := `module github.com/example/app

go 1.22

require (
	github.com/sirupsen/logrus v1.9.3
	golang.org/x/sys v0.31.0 // indirect
)

require github.com/spf13/cobra v1.9.1

replace github.com/spf13/cobra => ../cobra
`
	deps, err := GoModProcessor{}.Process("go.mod", []byte(content))
	require.NoError(t, err)
	require.Len(t, deps, 3)

	assert.Equal(t, Dependency{Name: "github.com/sirupsen/logrus", Version: "v1.9.3", Ecosystem: EcosystemGo, Kind: "direct"}, deps[0])
	assert.Equal(t, "indirect", deps[1].Kind)
	assert.Equal(t, "github.com/spf13/cobra", deps[2].Name)
	assert.Equal(t, "../cobra", deps[2].Extra["replaced_by"])
}

func TestGoModProcessor_Invalid(t *testing.T) {
	_, err := GoModProcessor{}.Process("go.mod", []byte("require (\n"))
	assert.Error(t, err)
}

func TestDependencyInfo(t *testing.T) {
	dep := Dependency{Name: "nginx", Version: "1.25", Ecosystem: EcosystemDocker, Kind: "service_image", Extra: map[string]any{"service": "web"}}
	assert.Equal(t, map[string]any{
		"name":      "nginx",
		"version":   "1.25",
		"ecosystem": "docker",
		"kind":      "service_image",
		"service":   "web",
	}, dep.Info())
}
