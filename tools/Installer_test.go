package tools

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reaandrew/salus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	commands []core.Command
	result   core.ProcessResult
}

func (r *recordingRunner) Execute(_ context.Context, command core.Command, _ core.ExecOptions) (core.ProcessResult, error) {
	r.commands = append(r.commands, command)
	return r.result, nil
}

func tarball(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestTrivyDownloadURL(t *testing.T) {
	url, err := TrivyDownloadURL("linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/aquasecurity/trivy/releases/download/v0.60.0/trivy_0.60.0_Linux-64bit.tar.gz", url)

	_, err = TrivyDownloadURL("plan9", "386")
	assert.Error(t, err)
}

func TestExtractBinary(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "trivy")
	archive := tarball(t, map[string]string{"LICENSE": "apache", "contrib/trivy": "#!/bin/sh\n"})

	require.NoError(t, ExtractBinary(archive, "trivy", dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(content))
}

func TestExtractBinaryMissing(t *testing.T) {
	archive := tarball(t, map[string]string{"README.md": "x"})
	err := ExtractBinary(archive, "trivy", filepath.Join(t.TempDir(), "trivy"))
	assert.ErrorContains(t, err, "trivy not found")
}

func TestEnsureTrivyUsesInstalledBinary(t *testing.T) {
	runner := &recordingRunner{}
	installer := NewInstaller(t.TempDir(), runner, func(string) (string, error) { return "/usr/bin/trivy", nil })

	path, err := installer.EnsureTrivy(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/trivy", path)
	assert.Equal(t, []core.Command{{"/usr/bin/trivy", "db", "update"}}, runner.commands)
}

func TestEnsureTrivyPrefersBinDir(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "trivy"), []byte("bin"), 0755))
	installer := NewInstaller(binDir, &recordingRunner{}, func(string) (string, error) { return "", errors.New("not found") })

	path, err := installer.EnsureTrivy(context.Background())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, "trivy"), path)
}

func TestEnsureTrivyDbUpdateFailure(t *testing.T) {
	runner := &recordingRunner{result: core.ProcessResult{ExitStatus: 1, Stderr: "no network\n"}}
	installer := NewInstaller(t.TempDir(), runner, func(string) (string, error) { return "trivy", nil })

	_, err := installer.EnsureTrivy(context.Background())

	assert.ErrorContains(t, err, "no network")
}
