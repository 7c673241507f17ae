package tools

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
)

// TrivyVersion is the release fetched when trivy is not on the PATH.
var TrivyVersion = "v0.60.0"

// Installer makes sure the external scanners exist before a scan starts.
type Installer struct {
	BinDir string
	Client *retryablehttp.Client
	Runner core.ProcessRunner
	// LookPath is exec.LookPath outside of tests.
	LookPath func(file string) (string, error)
}

func NewInstaller(binDir string, runner core.ProcessRunner, lookPath func(string) (string, error)) *Installer {
	return &Installer{
		BinDir:   binDir,
		Client:   utils.NewRetryableClient(3),
		Runner:   runner,
		LookPath: lookPath,
	}
}

// EnsureTrivy returns the path of a usable trivy binary, downloading the
// pinned release into BinDir when none is installed, and refreshes the
// vulnerability database.
func (i *Installer) EnsureTrivy(ctx context.Context) (string, error) {
	path, err := i.locateOrDownloadTrivy(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to install or locate trivy: %w", err)
	}

	result, err := i.Runner.Execute(ctx, core.Command{path, "db", "update"}, core.ExecOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to update trivy db: %w", err)
	}
	if !result.Success() {
		return "", fmt.Errorf("trivy db update exited with %d: %s", result.ExitStatus, strings.TrimSpace(result.Stderr))
	}
	log.Debug("Trivy database updated.")
	return path, nil
}

func (i *Installer) locateOrDownloadTrivy(ctx context.Context) (string, error) {
	if path, err := i.LookPath("trivy"); err == nil {
		log.Debugf("Using trivy at %s", path)
		return path, nil
	}
	local := filepath.Join(i.BinDir, "trivy")
	if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() {
		return local, nil
	}

	url, err := TrivyDownloadURL(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}
	log.Infof("Downloading trivy from %s", url)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := i.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download trivy: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code downloading trivy: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(i.BinDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", i.BinDir, err)
	}
	if err := ExtractBinary(resp.Body, "trivy", local); err != nil {
		return "", fmt.Errorf("failed to extract trivy: %w", err)
	}
	log.Debugf("Trivy installed to %s", local)
	return local, nil
}

// TrivyDownloadURL returns the release asset for the platform.
func TrivyDownloadURL(goos, goarch string) (string, error) {
	var suffix string
	switch {
	case goos == "linux" && goarch == "amd64":
		suffix = "Linux-64bit.tar.gz"
	case goos == "linux" && goarch == "arm64":
		suffix = "Linux-ARM64.tar.gz"
	case goos == "darwin" && goarch == "amd64":
		suffix = "macOS-64bit.tar.gz"
	case goos == "darwin" && goarch == "arm64":
		suffix = "macOS-ARM64.tar.gz"
	default:
		return "", fmt.Errorf("unsupported platform: %s/%s", goos, goarch)
	}
	fileName := fmt.Sprintf("trivy_%s_%s", strings.TrimPrefix(TrivyVersion, "v"), suffix)
	return fmt.Sprintf("https://github.com/aquasecurity/trivy/releases/download/%s/%s", TrivyVersion, fileName), nil
}

// ExtractBinary copies the regular file called name out of a gzipped tarball
// to dest and marks it executable.
func ExtractBinary(archive io.Reader, name, dest string) error {
	gz, err := gzip.NewReader(archive)
	if err != nil {
		return err
	}
	defer gz.Close()

	tarReader := tar.NewReader(gz)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return fmt.Errorf("%s not found in archive", name)
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg || filepath.Base(header.Name) != name {
			continue
		}

		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tarReader); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
}
