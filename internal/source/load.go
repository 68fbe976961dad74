// Package source feeds coverage snapshots to a glowmap host: snapshot
// files in JSON, YAML or TOML, a file watcher that reloads them, and a
// NATS stream carrying snapshots and cell-touched notifications.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/glowmap"
)

// ErrUnknownFormat is returned for files whose extension is not a known
// snapshot format.
var ErrUnknownFormat = errors.New("source: unknown snapshot format")

// Format is a snapshot encoding.
type Format int

// Snapshot encodings.
const (
	JSON Format = iota
	YAML
	TOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Load reads and decodes the snapshot file at path.
func Load(path string) (*glowmap.Snapshot, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: reading snapshot: %w", err)
	}
	s, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	glowmap.Logger().Debug("source: snapshot loaded", "path", path, "cells", len(s.Cells))
	return s, nil
}

// Decode parses a snapshot. Every format carries a top-level "cells"
// list; JSON also accepts a bare array of cells.
func Decode(data []byte, format Format) (*glowmap.Snapshot, error) {
	var s glowmap.Snapshot
	switch format {
	case JSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &s.Cells); err != nil {
				return nil, fmt.Errorf("decoding json: %w", err)
			}
			return &s, nil
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case TOML:
		if _, err := toml.Decode(string(data), &s); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	return &s, nil
}
