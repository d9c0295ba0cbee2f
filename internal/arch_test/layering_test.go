package arch_test

import (
	"strings"
	"testing"
)

// layers assigns each internal package to a layer. A package may import
// packages of a lower layer only.
var layers = map[string]int{
	"config":    0,
	"logging":   0,
	"metrics":   0,
	"position":  0,
	"telemetry": 0,

	"store": 1,
	"tree":  1,

	"importer": 2,
	"session":  2,

	"ui": 3,
}

// pureImports lists what the position core and the tree may import. They
// reach storage only through the interfaces they declare.
var pureImports = map[string]bool{
	"context": true,
	"errors":  true,
	"fmt":     true,
	"slices":  true,
	"sort":    true,
	"strings": true,

	internalPfx + "position": true,
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, p := range loadPackages(t) {
		from, ok := layers[p.name]
		if !ok {
			t.Errorf("package %s has no layer assignment; add it to the layers map", p.name)
			continue
		}
		for _, imp := range p.internalImports() {
			to, ok := layers[imp]
			if !ok {
				continue
			}
			if to >= from {
				t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)", p.name, from, imp, to)
			}
		}
	}
}

func TestCorePackagesArePure(t *testing.T) {
	t.Parallel()

	pkgs := loadPackages(t)
	for _, name := range []string{"position", "tree"} {
		p := findPackage(t, pkgs, name)
		for _, imp := range p.imports() {
			if !pureImports[imp] {
				t.Errorf("%s imports %s; the core must stay free of I/O and third-party code", name, imp)
			}
		}
	}
}

func TestLayersMapIsCurrent(t *testing.T) {
	t.Parallel()

	present := make(map[string]bool)
	for _, p := range loadPackages(t) {
		present[p.name] = true
	}
	var stale []string
	for name := range layers {
		if !present[name] {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		t.Errorf("layers map names missing packages: %s", strings.Join(stale, ", "))
	}
}
