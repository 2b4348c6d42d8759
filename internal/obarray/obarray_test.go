package obarray_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/lispvm/internal/obarray"
)

func TestIntern(t *testing.T) {
	var ob obarray.Obarray

	foo := ob.Intern("foo")
	require.Equal(t, foo, ob.Intern("foo"), "interning twice must return the same id")

	bar := ob.Intern("bar")
	require.NotEqual(t, foo, bar, "distinct names must get distinct ids")
	require.Equal(t, 2, ob.Len())

	for _, name := range []string{"foo", "bar", "set!", "", "λ"} {
		got, err := ob.Resolve(ob.Intern(name))
		require.NoError(t, err)
		assert.Equal(t, name, got, "resolve(intern(name)) must round trip")
	}

	id, ok := ob.Lookup("bar")
	assert.True(t, ok)
	assert.Equal(t, bar, id)
	_, ok = ob.Lookup("nope")
	assert.False(t, ok)
}

func TestResolveOutOfRange(t *testing.T) {
	var ob obarray.Obarray
	ob.Intern("only")

	for _, id := range []int{-1, 1, 100} {
		_, err := ob.Resolve(id)
		var ie obarray.IndexError
		require.True(t, errors.As(err, &ie), "expected IndexError for %v, got %v", id, err)
		assert.Equal(t, id, ie.ID)
		assert.Equal(t, 1, ie.Len)
	}
}
