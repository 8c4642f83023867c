package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PresetEntry describes one effect in a stored chain. Params holds initial
// named parameters; nested objects flatten into dotted keys on apply.
type PresetEntry struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// BuildEffectChain compiles a preset into a fresh slice of adapters, in
// order. Compiling the same preset twice yields independent instances. On
// any construction failure the already-built adapters are disposed and the
// whole build fails.
func BuildEffectChain(ctx context.Context, entries []PresetEntry) ([]*EffectAdapter, error) {
	built := make([]*EffectAdapter, 0, len(entries))
	for i, entry := range entries {
		fx, err := CreateEffectByName(ctx, entry.Type)
		if err != nil {
			for _, prev := range built {
				prev.Dispose()
			}
			return nil, fmt.Errorf("build chain entry %d (%s): %w", i, entry.Type, err)
		}
		applyParams(fx, "", entry.Params)
		built = append(built, fx)
	}
	return built, nil
}

func applyParams(fx *EffectAdapter, prefix string, params map[string]interface{}) {
	for key, raw := range params {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := raw.(type) {
		case float64:
			fx.SetParam(full, v)
		case map[string]interface{}:
			applyParams(fx, full, v)
		default:
			log.Printf("[WARN] preset parameter %q has non-numeric value\n", full)
		}
	}
}

// namedPresets are the built-in chains, available without a preset
// directory.
var namedPresets = map[string][]PresetEntry{
	"dreamy": {
		{Type: "echo", Params: map[string]interface{}{"time": 0.45, "feedback": 0.4, "wet": 0.3}},
		{Type: "space", Params: map[string]interface{}{"decay": 4.0, "wet": 0.35}},
	},
	"wide": {
		{Type: "chorus", Params: map[string]interface{}{"wet": 0.4}},
		{Type: "width", Params: map[string]interface{}{"width": 2.5}},
	},
	"crushed": {
		{Type: "crush"},
		{Type: "distortion"},
		{Type: "compressor", Params: map[string]interface{}{"threshold": -18.0, "ratio": 4.0}},
	},
	"vocal": {
		{Type: "eq", Params: map[string]interface{}{"low": -2.0, "mid": 1.5, "high": 3.0}},
		{Type: "compressor", Params: map[string]interface{}{"threshold": -20.0, "ratio": 3.0}},
		{Type: "hall", Params: map[string]interface{}{"wet": 0.25}},
	},
}

// NamedPreset resolves a built-in preset by name.
func NamedPreset(name string) ([]PresetEntry, bool) {
	entries, ok := namedPresets[name]
	return entries, ok
}

// presetManager loads preset chains from JSON files in a directory, one
// chain per file, named after the file.
type presetManager struct {
	dir     string
	presets map[string][]PresetEntry
}

func newPresetManager(dir string) *presetManager {
	return &presetManager{dir: dir, presets: map[string][]PresetEntry{}}
}

func (m *presetManager) load() error {
	files, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		bytes, err := os.ReadFile(filepath.Join(m.dir, f.Name()))
		if err != nil {
			return err
		}
		var entries []PresetEntry
		if err := json.Unmarshal(bytes, &entries); err != nil {
			return fmt.Errorf("preset %s: %w", f.Name(), err)
		}
		name := strings.TrimSuffix(f.Name(), ".json")
		m.presets[name] = entries
	}
	return nil
}

// resolve looks up a loaded preset first, then the built-ins.
func (m *presetManager) resolve(name string) ([]PresetEntry, bool) {
	if entries, ok := m.presets[name]; ok {
		return entries, true
	}
	return NamedPreset(name)
}
