package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildEffectChainOrder(t *testing.T) {
	entries := []PresetEntry{
		{Type: "echo"},
		{Type: "space"},
		{Type: "width"},
	}
	chain, err := BuildEffectChain(context.Background(), entries)
	expectNoError(t, err)
	if len(chain) != 3 {
		t.Fatalf("expected 3 effects, got %d", len(chain))
	}
	want := []EffectKind{EffectEcho, EffectSpace, EffectWidth}
	for i, fx := range chain {
		if fx.Kind != want[i] {
			t.Errorf("position %d: expected %v, got %v", i, want[i], fx.Kind)
		}
		fx.Dispose()
	}
}

func TestBuildEffectChainTwiceIsIndependent(t *testing.T) {
	entries, ok := NamedPreset("dreamy")
	if !ok {
		t.Fatal("missing built-in preset")
	}
	first, err := BuildEffectChain(context.Background(), entries)
	expectNoError(t, err)
	second, err := BuildEffectChain(context.Background(), entries)
	expectNoError(t, err)
	if len(first) != len(second) {
		t.Fatalf("chains differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind {
			t.Errorf("position %d: kinds differ", i)
		}
		if first[i] == second[i] || first[i].node == second[i].node {
			t.Errorf("position %d: instances must be distinct", i)
		}
	}
	for _, fx := range first {
		fx.Dispose()
	}
	// the second chain keeps working after the first is gone
	buf := make([]float64, 256)
	buf[0] = 1
	for _, fx := range second {
		fx.process(buf)
		fx.Dispose()
	}
}

func TestBuildEffectChainUnknownTypeFallsBack(t *testing.T) {
	chain, err := BuildEffectChain(context.Background(), []PresetEntry{{Type: "sparkle"}})
	expectNoError(t, err)
	if len(chain) != 1 || chain[0].Kind != EffectFilter {
		t.Errorf("expected fallback filter, got %v", chain)
	}
	chain[0].Dispose()
}

func TestBuildEffectChainParams(t *testing.T) {
	entries := []PresetEntry{
		{Type: "compressor", Params: map[string]interface{}{"threshold": -18.0, "ratio": 4.0}},
	}
	chain, err := BuildEffectChain(context.Background(), entries)
	expectNoError(t, err)
	defer chain[0].Dispose()
	n := chain[0].node.(*compressorNode)
	if n.threshold.target() != -18 {
		t.Errorf("expected threshold -18, got %v", n.threshold.target())
	}
	if n.ratio.target() != 4 {
		t.Errorf("expected ratio 4, got %v", n.ratio.target())
	}
}

func TestPresetManagerLoadsDir(t *testing.T) {
	dir := t.TempDir()
	entries := []PresetEntry{
		{Type: "eq", Params: map[string]interface{}{"high": 3.0}},
		{Type: "hall"},
	}
	data, err := json.Marshal(entries)
	expectNoError(t, err)
	expectNoError(t, os.WriteFile(filepath.Join(dir, "bright.json"), data, 0644))

	m := newPresetManager(dir)
	expectNoError(t, m.load())
	loaded, ok := m.resolve("bright")
	if !ok {
		t.Fatal("expected loaded preset")
	}
	if len(loaded) != 2 || loaded[0].Type != "eq" || loaded[1].Type != "hall" {
		t.Errorf("unexpected entries: %v", loaded)
	}
	// built-ins stay reachable
	if _, ok := m.resolve("wide"); !ok {
		t.Error("expected built-in preset through the manager")
	}
}
