package meta

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wired struct{ Options []string }

type listed struct{}

type taggedComponent struct {
	Dep    *engine  `assemble:"wire"`
	Many   []string `assemble:"wire,many; note"`
	Plain  int
	hidden int //nolint:unused
}

type badTag struct {
	Dep *engine `assemble:"bogus"`
}

type unexportedTag struct {
	dep *engine `assemble:"wire"` //nolint:unused
}

func testCatalog() *Catalog {
	c := NewCatalog()
	c.RegisterTag("wire", func(_ reflect.StructField, options []string) (Marker, error) {
		return wired{Options: options}, nil
	})
	c.RegisterTag("note", func(_ reflect.StructField, options []string) (Marker, error) {
		if len(options) > 0 {
			return nil, errors.New("note takes no options")
		}
		return listed{}, nil
	})
	return c
}

func TestCatalog_ParsesTags(t *testing.T) {
	c := testCatalog()
	require.NoError(t, c.Add(Describe[*taggedComponent]()))

	d, ok := c.Lookup(reflect.TypeFor[*taggedComponent]())
	require.True(t, ok)
	require.Len(t, d.Fields, 2)

	assert.Equal(t, "Dep", d.Fields[0].Name)
	assert.Equal(t, []Marker{wired{Options: []string{}}}, d.Fields[0].Markers)
	assert.Equal(t, "Many", d.Fields[1].Name)
	assert.Equal(t, []Marker{wired{Options: []string{"many"}}, listed{}}, d.Fields[1].Markers)
}

func TestCatalog_Errors(t *testing.T) {
	c := testCatalog()
	require.ErrorContains(t, c.Add(Describe[*badTag]()), `unknown assemble directive "bogus"`)
	require.ErrorContains(t, c.Add(Describe[*unexportedTag]()), "must be exported")
	require.Error(t, c.Add(nil))

	require.NoError(t, c.Add(Describe[*engine]()))
	require.ErrorContains(t, c.Add(Describe[*engine]()), "already described")
	require.Panics(t, func() { c.MustAdd(Describe[*engine]()) })
}

func TestCatalog_Order(t *testing.T) {
	c := NewCatalog().MustAdd(Describe[*engine](), Describe[*base]())
	require.Equal(t, 2, c.Len())
	types := c.Types()
	assert.Equal(t, reflect.TypeFor[*engine](), types[0].Type)
	assert.Equal(t, reflect.TypeFor[*base](), types[1].Type)
}

// ── Scanners ──────────────────────────────────────────────────────────────────

func scanCatalog() *Catalog {
	return NewCatalog().MustAdd(
		Describe[*engine]().Mark(tagged{}),
		Describe[*base]().Mark(listed{}),
		Interface[starter]().Mark(tagged{}),
		Describe[*strings.Builder]().Mark(tagged{}),
	)
}

func TestCatalogScanner(t *testing.T) {
	s := NewCatalogScanner(scanCatalog())
	root := reflect.TypeFor[*engine]()

	found, err := s.Scan(root, []reflect.Type{MarkerOf[tagged]()})
	require.NoError(t, err)
	require.Len(t, found, 1, "interfaces and other namespaces are skipped")
	assert.Equal(t, reflect.TypeFor[*engine](), found[0].Type)

	found, err = s.Scan(root, []reflect.Type{MarkerOf[tagged](), MarkerOf[listed]()})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = s.Scan(nil, []reflect.Type{MarkerOf[tagged]()})
	require.NoError(t, err)
	assert.Len(t, found, 2, "a nil root scans every package")

	found, err = s.Scan(root, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestScanners_Describe(t *testing.T) {
	root := reflect.TypeFor[*engine]()
	var s Describer = NewCatalogScanner(scanCatalog())

	d, ok := s.Describe(root, reflect.TypeFor[*base]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[*base](), d.Type)

	_, ok = s.Describe(root, reflect.TypeFor[starter]())
	assert.False(t, ok, "interfaces are never described")
	_, ok = s.Describe(root, reflect.TypeFor[*strings.Builder]())
	assert.False(t, ok, "outside the namespace")
	_, ok = s.Describe(nil, reflect.TypeFor[*strings.Builder]())
	assert.True(t, ok)

	s = NewManifestScanner(scanCatalog(), &Manifest{Exclude: []string{"github.com/km-arc/go-assemble/framework/meta.base"}})
	_, ok = s.Describe(root, reflect.TypeFor[*base]())
	assert.False(t, ok, "excluded by the manifest")
	_, ok = s.Describe(root, reflect.TypeFor[*engine]())
	assert.True(t, ok)
}

func TestInNamespace(t *testing.T) {
	type local struct{}
	assert.True(t, InNamespace(reflect.TypeFor[*engine](), reflect.TypeFor[local]()))
	assert.False(t, InNamespace(reflect.TypeFor[*strings.Builder](), reflect.TypeFor[*engine]()))
	assert.False(t, InNamespace(reflect.TypeFor[*engine](), reflect.TypeFor[*strings.Builder]()))
}

func TestManifestScanner(t *testing.T) {
	m, err := ParseManifest([]byte(`
components:
  - github.com/km-arc/go-assemble/framework/meta.engine
  - github.com/km-arc/go-assemble/framework/meta.base
exclude:
  - github.com/km-arc/go-assemble/framework/meta.base
`))
	require.NoError(t, err)

	s := NewManifestScanner(scanCatalog(), m)
	found, err := s.Scan(reflect.TypeFor[*engine](), []reflect.Type{MarkerOf[tagged](), MarkerOf[listed]()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, reflect.TypeFor[*engine](), found[0].Type)
}

func TestManifestScanner_UnknownType(t *testing.T) {
	s := NewManifestScanner(scanCatalog(), &Manifest{Components: []string{"example.com/nope.Thing"}})
	_, err := s.Scan(nil, []reflect.Type{MarkerOf[tagged]()})
	require.ErrorContains(t, err, "unknown type")
}

func TestManifestScanner_EmptyAdmitsAll(t *testing.T) {
	s := NewManifestScanner(scanCatalog(), &Manifest{})
	found, err := s.Scan(reflect.TypeFor[*engine](), []reflect.Type{MarkerOf[tagged](), MarkerOf[listed]()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.yaml")
	require.NoError(t, os.WriteFile(path, []byte("components: [a.B]\n"), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.B"}, m.Components)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseManifest([]byte("components: {"))
	require.Error(t, err)
}
