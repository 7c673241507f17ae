package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/reaandrew/salus/core"
	"github.com/reaandrew/salus/utils"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	StoreSqlite = "sqlite"
	StoreFile   = "file"
	StoreBolt   = "bolt"
)

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// Config is the merged configuration of a scan.
type Config struct {
	ActiveScanners   []string                      `yaml:"active_scanners"`
	EnforcedScanners []string                      `yaml:"enforced_scanners"`
	ReportURI        string                        `yaml:"report_uri"`
	Store            StoreConfig                   `yaml:"store"`
	ScannerConfigs   map[string]core.ScannerConfig `yaml:"scanner_configs"`
}

func Default() *Config {
	return &Config{
		Store:          StoreConfig{Kind: StoreSqlite, Path: "salus_events.db"},
		ScannerConfigs: map[string]core.ScannerConfig{},
	}
}

// Load reads each file in order. Keys of later files override those of
// earlier ones and nested mappings are merged.
func Load(paths ...string) (*Config, error) {
	merged := map[string]any{}
	for _, path := range paths {
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, doc)
		log.Debugf("Loaded configuration from %s", path)
	}
	return FromMap(expandEnv(merged).(map[string]any))
}

// FromMap builds a Config from an already decoded document.
func FromMap(doc map[string]any) (*Config, error) {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.ScannerConfigs == nil {
		cfg.ScannerConfigs = map[string]core.ScannerConfig{}
	}
	return cfg, nil
}

func readDocument(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", path, err)
	}

	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
		}
	}
	return normalize(doc).(map[string]any), nil
}

// normalize turns the decoders' slice and map flavours into []any and
// map[string]any so documents from either format merge the same way.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func deepMerge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

func expandEnv(v any) any {
	switch t := v.(type) {
	case string:
		return os.ExpandEnv(t)
	case map[string]any:
		for k, item := range t {
			t[k] = expandEnv(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = expandEnv(item)
		}
		return t
	default:
		return v
	}
}

// ScannerConfig returns the configuration block of a scanner, never nil.
func (c *Config) ScannerConfig(name string) core.ScannerConfig {
	if cfg, ok := c.ScannerConfigs[name]; ok && cfg != nil {
		return cfg
	}
	return core.ScannerConfig{}
}

// IsActive reports whether name should be built. An empty active list means
// every registered scanner.
func (c *Config) IsActive(name string) bool {
	return len(c.ActiveScanners) == 0 || utils.Contains(c.ActiveScanners, name)
}

// Enforced returns the scanners whose failure fails the scan. When none are
// configured every active scanner is enforced.
func (c *Config) Enforced(registered []string) []string {
	if len(c.EnforcedScanners) > 0 {
		return c.EnforcedScanners
	}
	var enforced []string
	for _, name := range registered {
		if c.IsActive(name) {
			enforced = append(enforced, name)
		}
	}
	return enforced
}
