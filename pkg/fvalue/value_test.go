package fvalue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualDeep(t *testing.T) {
	a := List(Int(1), String("x"), Map(func() *OrderedMap {
		m := NewOrderedMap()
		m.Set("k", Bool(true))
		return m
	}()))
	b := List(Int(1), String("x"), Map(func() *OrderedMap {
		m := NewOrderedMap()
		m.Set("k", Bool(true))
		return m
	}()))
	assert.True(t, Equal(a, b))

	c := List(Int(1), String("y"))
	assert.False(t, Equal(a, c))
}

func TestFromBestEffort(t *testing.T) {
	v, exact := From(42)
	require.True(t, exact)
	i, ok := v.AsInt()
	require.True(t, ok)
	assert.EqualValues(t, 42, i)

	type weird struct{ X int }
	v2, exact2 := From(weird{X: 1})
	assert.False(t, exact2)
	assert.True(t, v2.IsInexact())
	s, ok := v2.AsString()
	require.True(t, ok)
	assert.Contains(t, s, "1")

	assert.False(t, v.IsInexact())
}

func TestFromPropagatesInexactThroughListsAndMaps(t *testing.T) {
	type weird struct{ X int }

	lv, exact := From([]interface{}{1, weird{X: 1}})
	assert.False(t, exact)
	assert.True(t, lv.IsInexact())

	mv, exact := From(map[string]interface{}{"a": 1, "b": weird{X: 1}})
	assert.False(t, exact)
	assert.True(t, mv.IsInexact())

	cleanList, exact := From([]interface{}{1, 2})
	assert.True(t, exact)
	assert.False(t, cleanList.IsInexact())
}

func TestFromError(t *testing.T) {
	v, exact := From(errors.New("boom"))
	require.True(t, exact)
	err, ok := v.AsError()
	require.True(t, ok)
	assert.EqualError(t, err, "boom")
}

func TestRenderTextQuoting(t *testing.T) {
	assert.Equal(t, "ana", RenderText(String("ana")))
	assert.Equal(t, `"has space"`, RenderText(String("has space")))
	assert.Equal(t, `""`, RenderText(String("")))
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("b", Int(1))
	m.Set("a", Int(2))
	m.Set("b", Int(3)) // overwrite keeps position
	require.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.EqualValues(t, 3, i)
}

func TestOrderedMapCloneIsIndependent(t *testing.T) {
	m := NewOrderedMap()
	m.Set("a", Int(1))
	clone := m.Clone()
	clone.Set("b", Int(2))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, clone.Len())
}
