package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/resolver"
	"github.com/matzehuels/modcat/pkg/semver"
)

func rec(id, version string, deps ...module.Dependency) *module.Record {
	return &module.Record{ID: id, Version: semver.MustParseVersion(version), Dependencies: deps}
}

func TestToDOT(t *testing.T) {
	root := rec("App", "1.0.0",
		module.Dependency{ID: "Core", Range: "^1.0"},
		module.Dependency{ID: "Missing", Range: "^2.0"},
	)
	core := rec("Core", "1.4.0")
	core.Installed = true

	records := []*module.Record{root, core}
	res, err := resolver.Resolve(records, root, resolver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	dot := ToDOT(root, res, Options{})
	for _, want := range []string{
		"digraph G {",
		`"App" [label="App", penwidth=2];`,
		`"Core" [label="Core", fillcolor=lightblue];`,
		`"Missing" [label="Missing", style="rounded,dashed", color=red, fontcolor=red];`,
		`"App" -> "Core";`,
		`"App" -> "Missing";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	root := rec("App", "1.0.0", module.Dependency{ID: "Core", Range: "^1.0"})
	core := rec("Core", "1.4.0")
	core.Title = "Core services"

	res, err := resolver.Resolve([]*module.Record{root, core}, root, resolver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	dot := ToDOT(root, res, Options{Detailed: true})
	if !strings.Contains(dot, `label="Core\n1.4.0\nCore services"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"App" -> "Core" [label="^1.0"];`) {
		t.Errorf("edge range missing:\n%s", dot)
	}
}

func TestToDOTCycleEdgeBackToRoot(t *testing.T) {
	root := rec("A", "1.0.0", module.Dependency{ID: "B", Range: "1.0.0"})
	b := rec("B", "1.0.0", module.Dependency{ID: "A", Range: "1.0.0"})

	res, err := resolver.Resolve([]*module.Record{root, b}, root, resolver.Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	dot := ToDOT(root, res, Options{})
	if !strings.Contains(dot, `"B" -> "A";`) {
		t.Errorf("cycle edge missing:\n%s", dot)
	}
	if strings.Count(dot, `"A" [`) != 1 {
		t.Errorf("root drawn more than once:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200">`
	if !strings.HasPrefix(out, want) {
		t.Errorf("normalizeViewBox = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("svg without viewBox should be unchanged")
	}
}
