package resolver

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
)

// rec builds a record; deps alternate id, range.
func rec(id, version string, installed bool, deps ...string) *module.Record {
	r := &module.Record{ID: id, Version: semver.MustParseVersion(version), Installed: installed}
	for i := 0; i+1 < len(deps); i += 2 {
		r.Dependencies = append(r.Dependencies, module.Dependency{ID: deps[i], Range: deps[i+1]})
	}
	return r
}

func version(t *testing.T, res *Result, id string) string {
	t.Helper()
	r, ok := res.Modules[id]
	require.True(t, ok, "dependency %s not selected", id)
	return r.Version.String()
}

func TestResolvePrefersInstalled(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", true),
		rec("B", "1.2.0", false),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version(t, res, "B"))
	assert.True(t, res.Complete())
}

func TestResolveFallsBackToNewest(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", false),
		rec("B", "1.2.0", false),
		rec("B", "2.0.0", false),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", version(t, res, "B"))
}

func TestResolveIncompatibleInstalledIgnored(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.1.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", true),
		rec("B", "1.2.0", false),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", version(t, res, "B"))
}

func TestResolveIncompatibleDependency(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "2.0.0", "C", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", true),
		rec("B", "1.2.0", false),
		rec("C", "1.0.0", false),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)

	assert.NotContains(t, res.Modules, "B")
	assert.Equal(t, "1.0.0", version(t, res, "C"))
	require.Len(t, res.Unresolved, 1)

	u := res.Unresolved[0]
	assert.Equal(t, "A@1.0.0", u.Root)
	assert.Equal(t, "B", u.DependencyID)
	assert.Equal(t, []string{"2.0.0"}, u.Ranges)
	assert.Equal(t, []string{"1.2.0", "1.0.0"}, u.Available)

	assert.False(t, res.Complete())
	assert.True(t, errors.Is(res.Err(), errors.ErrCodeDependencyUnresolved))
	var target *errors.DependencyUnresolvedError
	assert.True(t, stderrors.As(res.Err(), &target))
}

func TestResolveMissingDependency(t *testing.T) {
	a := rec("A", "1.0.0", false, "Ghost", "1.0.0")

	var logged []string
	res, err := Resolve([]*module.Record{a}, a, Options{
		Logger: func(format string, args ...any) { logged = append(logged, format) },
	})
	require.NoError(t, err)
	assert.Empty(t, res.Modules)
	require.Len(t, res.Unresolved, 1)
	assert.Empty(t, res.Unresolved[0].Available)
	assert.Len(t, logged, 1)
}

func TestResolveCycleTerminates(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	b := rec("B", "1.0.0", false, "A", "1.0.0")

	res, err := Resolve([]*module.Record{a, b}, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.IDs())
	assert.NotContains(t, res.Modules, "A")
}

func TestResolveSelfAtOtherVersionExcluded(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	records := []*module.Record{
		a,
		rec("A", "1.5.0", false),
		rec("B", "1.0.0", false, "A", "1.5.0"),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.IDs())
}

func TestResolveTransitive(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", false, "C", "^2.0"),
		rec("C", "2.0.0", false, "D", "1.0.0"),
		rec("C", "2.3.1", true, "D", "1.0.0"),
		rec("D", "1.4.0", false),
		rec("E", "1.0.0", false),
	}

	res, err := Resolve(records, a, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, res.IDs())
	assert.Equal(t, "2.3.1", version(t, res, "C"))
	assert.Equal(t, "1.4.0", version(t, res, "D"))
}

func TestResolveFirstDeclaredRange(t *testing.T) {
	// A wants C ^1.0; B (also required by A) wants C 1.5.0 or later.
	a := rec("A", "1.0.0", false, "B", "1.0.0", "C", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", false, "C", ">=1.5.0"),
		rec("C", "1.2.0", true),
		rec("C", "1.6.0", false),
	}

	res, err := Resolve(records, a, Options{Policy: FirstDeclared})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", version(t, res, "C"))
}

func TestResolveIntersectRanges(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0", "C", "1.0.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", false, "C", ">=1.5.0"),
		rec("C", "1.2.0", true),
		rec("C", "1.6.0", false),
	}

	res, err := Resolve(records, a, Options{Policy: Intersect})
	require.NoError(t, err)
	assert.Equal(t, "1.6.0", version(t, res, "C"))
}

func TestResolveIntersectUnsatisfiable(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0", "C", "<1.5.0")
	records := []*module.Record{
		a,
		rec("B", "1.0.0", false, "C", ">=1.5.0"),
		rec("C", "1.2.0", false),
		rec("C", "1.6.0", false),
	}

	res, err := Resolve(records, a, Options{Policy: Intersect})
	require.NoError(t, err)
	assert.NotContains(t, res.Modules, "C")
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, []string{"<1.5.0", ">=1.5.0"}, res.Unresolved[0].Ranges)
}

func TestResolveCustomOracle(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "exact:1.0.0")
	records := []*module.Record{a, rec("B", "1.0.0", false), rec("B", "1.1.0", false)}

	oracle := semver.OracleFunc(func(rng string, v semver.Version) bool {
		return rng == "exact:"+v.String()
	})
	res, err := Resolve(records, a, Options{Oracle: oracle})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version(t, res, "B"))
}

func TestResolveNilRoot(t *testing.T) {
	_, err := Resolve(nil, nil, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	b := rec("B", "1.0.0", false)
	records := []*module.Record{a, b}

	_, err := Resolve(records, a, Options{Policy: Intersect})
	require.NoError(t, err)
	assert.Len(t, a.Dependencies, 1)
	assert.Empty(t, b.Errors)
}

func TestResolveConcurrent(t *testing.T) {
	a := rec("A", "1.0.0", false, "B", "1.0.0")
	records := []*module.Record{a, rec("B", "1.0.0", true), rec("B", "1.3.0", false)}
	opts := Options{Oracle: semver.NewConstraintOracle()}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := Resolve(records, a, opts)
			if err != nil || res.Modules["B"].Version.String() != "1.0.0" {
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestParseRangePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RangePolicy
		wantErr bool
	}{
		{"", FirstDeclared, false},
		{"first", FirstDeclared, false},
		{"Intersect", Intersect, false},
		{"newest", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRangePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRangePolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRangePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
