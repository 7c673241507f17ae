package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ScannerConfig is the free-form configuration block of a single scanner as
// decoded from YAML or TOML.
type ScannerConfig map[string]any

func (c ScannerConfig) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func (c ScannerConfig) Bool(key string, def bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

func (c ScannerConfig) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

// StringSlice accepts either a list or a comma separated string.
func (c ScannerConfig) StringSlice(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

// Maps returns the list under key, keeping only the entries that are
// mappings themselves. yaml.v3 decodes nested mappings as ScannerConfig when
// the parent is one, so both forms are accepted.
func (c ScannerConfig) Maps(key string) []ScannerConfig {
	var out []ScannerConfig
	switch v := c[key].(type) {
	case []any:
		for _, item := range v {
			switch m := item.(type) {
			case ScannerConfig:
				out = append(out, m)
			case map[string]any:
				out = append(out, ScannerConfig(m))
			}
		}
	case []ScannerConfig:
		out = append(out, v...)
	case []map[string]any:
		for _, m := range v {
			out = append(out, ScannerConfig(m))
		}
	}
	return out
}
