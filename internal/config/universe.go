package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"portfolio-frontier/internal/model"

	"gopkg.in/yaml.v3"
)

// Universe is a named instrument preset stored as YAML.
type Universe struct {
	ID          string   `yaml:"-" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Instruments []string `yaml:"instruments" json:"instruments"`
}

type universeFileWrapper struct {
	Universe Universe `yaml:"universe"`
}

// LoadUniverse reads a preset file. The ID is the file name without extension.
func LoadUniverse(path string) (Universe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Universe{}, fmt.Errorf("read universe: %w", err)
	}
	var w universeFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return Universe{}, fmt.Errorf("parse universe %s: %w", path, err)
	}
	u := w.Universe
	u.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if u.Name == "" {
		u.Name = u.ID
	}
	for i, s := range u.Instruments {
		u.Instruments[i] = model.Symbol(s)
	}
	return u, nil
}

// ResolveUniversePath maps a universe reference to a file path. Bare names
// are looked up as <dir>/<name>.yaml, then <dir>/universes/<name>.yaml, then
// in DefaultUniverseDir.
func ResolveUniversePath(dir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	name := ref
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	for _, cand := range []string{
		filepath.Join(dir, name),
		filepath.Join(dir, "universes", name),
	} {
		if _, err := os.Stat(cand); err == nil {
			return cand
		}
	}
	return filepath.Join(DefaultUniverseDir(), name)
}

// ListUniverses loads every *.yaml preset in dir, sorted by ID.
// Unreadable files are skipped.
func ListUniverses(dir string) ([]Universe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []Universe{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		u, err := LoadUniverse(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DefaultUniverseDir returns UNIVERSE_DIR or ./examples/universes.
func DefaultUniverseDir() string {
	if dir := os.Getenv("UNIVERSE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(".", "examples", "universes")
}
