package meta

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagged struct{}

type starter interface{ Start() error }

type base struct {
	Log string
}

type engine struct {
	base
	Power  int
	Wheels []string

	started bool
}

func newEngine() *engine { return &engine{Power: 1} }

func newEngineWithPower(p int) (*engine, error) {
	if p < 0 {
		return nil, errors.New("negative power")
	}
	return &engine{Power: p}, nil
}

func (e *engine) Start() error {
	e.started = true
	return nil
}

func (e *engine) Rev(times int) (int, error) {
	if times == 0 {
		return 0, errors.New("no revs")
	}
	return e.Power * times, nil
}

// ── Descriptor ────────────────────────────────────────────────────────────────

func TestDescribe_Builders(t *testing.T) {
	d := Describe[*engine]().
		Mark(tagged{}).
		Constructor(newEngine).
		Constructor(newEngineWithPower).
		Field("Power", tagged{}).
		Field("Power", "second").
		Method("Start", tagged{})

	assert.Equal(t, reflect.TypeFor[*engine](), d.Type)
	assert.Equal(t, "github.com/km-arc/go-assemble/framework/meta.engine", d.Name())
	assert.True(t, d.HasMarker(MarkerOf[tagged]()))
	assert.False(t, d.HasMarker(MarkerOf[string]()))
	require.Len(t, d.Constructors, 2)
	assert.Empty(t, d.Constructors[0].Params)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[int]()}, d.Constructors[1].Params)
	require.Len(t, d.Fields, 1)
	assert.Len(t, d.Fields[0].Markers, 2)
	require.Len(t, d.Methods, 1)
}

func TestDescribe_PanicsOnProgrammerErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"constructor not a func", func() { Describe[*engine]().Constructor(42) }},
		{"constructor wrong result", func() { Describe[*engine]().Constructor(func() int { return 0 }) }},
		{"constructor bad second result", func() { Describe[*engine]().Constructor(func() (*engine, int) { return nil, 0 }) }},
		{"variadic constructor", func() { Describe[*engine]().Constructor(func(...int) *engine { return nil }) }},
		{"unexported field", func() { Describe[*engine]().Field("started") }},
		{"missing field", func() { Describe[*engine]().Field("Nope") }},
		{"missing method", func() { Describe[*engine]().Method("Stop") }},
		{"interface of struct", func() { Interface[*engine]() }},
		{"self parent", func() { d := Describe[*engine](); d.Extends(d) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Panics(t, tt.fn)
		})
	}
}

func TestAncestors_DepthFirstWithoutDuplicates(t *testing.T) {
	shared := Interface[starter]()
	b := Describe[*base]().Extends(shared)
	e := Describe[*engine]().Extends(b, shared)

	assert.Equal(t,
		[]reflect.Type{reflect.TypeFor[*engine](), reflect.TypeFor[*base](), reflect.TypeFor[starter]()},
		e.AncestorTypes())
}

func TestAncestors_SkipsUniversalType(t *testing.T) {
	e := Describe[*engine]().Extends(Of(reflect.TypeFor[any]()))
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*engine]()}, e.AncestorTypes())
	assert.True(t, IsUniversal(reflect.TypeFor[any]()))
	assert.True(t, IsUniversal(nil))
	assert.False(t, IsUniversal(reflect.TypeFor[starter]()))
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestConstructor_Invoke(t *testing.T) {
	d := Describe[*engine]().Constructor(newEngineWithPower)
	ctor := d.Constructors[0]

	v, err := ctor.Invoke([]any{7})
	require.NoError(t, err)
	assert.Equal(t, 7, v.(*engine).Power)

	_, err = ctor.Invoke([]any{-1})
	require.EqualError(t, err, "negative power")

	_, err = ctor.Invoke(nil)
	require.Error(t, err)

	_, err = ctor.Invoke([]any{"seven"})
	require.Error(t, err)

	assert.Contains(t, ctor.String(), "newEngineWithPower(int)")
}

func TestZeroValueConstructor(t *testing.T) {
	ctor, ok := ZeroValueConstructor(reflect.TypeFor[*engine]())
	require.True(t, ok)
	v, err := ctor.Invoke(nil)
	require.NoError(t, err)
	assert.Equal(t, &engine{}, v)

	_, ok = ZeroValueConstructor(reflect.TypeFor[engine]())
	assert.False(t, ok)
	_, ok = ZeroValueConstructor(reflect.TypeFor[starter]())
	assert.False(t, ok)
	_, ok = ZeroValueConstructor(reflect.TypeFor[*int]())
	assert.False(t, ok)
}

// ── Field / Method ────────────────────────────────────────────────────────────

func TestField_GetSet(t *testing.T) {
	d := Describe[*engine]().Field("Power").Field("Log").Field("Wheels")
	e := &engine{}

	require.NoError(t, d.Fields[0].Set(e, 9))
	require.NoError(t, d.Fields[1].Set(e, "promoted"))
	assert.Equal(t, 9, e.Power)
	assert.Equal(t, "promoted", e.Log)

	v, err := d.Fields[0].Get(e)
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	require.Error(t, d.Fields[0].Set(e, "nine"))
	require.Error(t, d.Fields[0].Set(engine{}, 1), "non-pointer component is not settable")
	require.Error(t, d.Fields[0].Set((*engine)(nil), 1))

	e.Wheels = []string{"a"}
	require.NoError(t, d.Fields[2].Set(e, nil))
	assert.Nil(t, e.Wheels)
}

func TestMethod_Invoke(t *testing.T) {
	d := Describe[*engine]().Method("Rev").Method("Start")
	e := &engine{Power: 3}

	params, err := d.Methods[0].Params(e)
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[int]()}, params)

	out, err := d.Methods[0].Invoke(e, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{6}, out)

	_, err = d.Methods[0].Invoke(e, 0)
	require.EqualError(t, err, "no revs")

	_, err = d.Methods[0].Invoke(e)
	require.Error(t, err)

	out, err = d.Methods[1].Invoke(e)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, e.started)
}

func TestMethod_BindMissing(t *testing.T) {
	d := Describe[*engine]().Method("Start")
	_, err := d.Methods[0].Bind(&base{})
	require.Error(t, err)
}
