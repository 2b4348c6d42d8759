package fileinput_test

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/lispvm/internal/fileinput"
)

type namedReader struct {
	*strings.Reader
	name   string
	closed bool
}

func (nr *namedReader) Name() string { return nr.name }
func (nr *namedReader) Close() error { nr.closed = true; return nil }

func TestInput(t *testing.T) {
	a := &namedReader{Reader: strings.NewReader("(+ 1 2)"), name: "a.lisp"}
	b := &namedReader{Reader: strings.NewReader("(car x)"), name: "b.lisp"}
	in := fileinput.Input{Queue: []io.Reader{a, strings.NewReader("anon"), b}}

	require.True(t, in.Next())
	assert.Equal(t, "a.lisp", in.Name)
	data, err := ioutil.ReadAll(&in)
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 2)", string(data))

	require.True(t, in.Next())
	assert.True(t, a.closed, "expected the previous stream to be closed")
	assert.Equal(t, "<unnamed *strings.Reader>", in.Name)

	require.True(t, in.Next())
	assert.Equal(t, "b.lisp", in.Name)
	require.NoError(t, in.Close())
	assert.True(t, b.closed)
	assert.False(t, in.Next())
	assert.Equal(t, "", in.Name)
}

func TestOpen(t *testing.T) {
	dir, err := ioutil.TempDir("", "fileinput")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "prog.lisp")
	require.NoError(t, ioutil.WriteFile(name, []byte("(display 1)"), 0644))

	in, err := fileinput.Open(name, "-")
	require.NoError(t, err)
	defer in.Close()

	require.True(t, in.Next())
	assert.Equal(t, name, in.Name)
	data, err := ioutil.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "(display 1)", string(data))

	require.True(t, in.Next())
	assert.Equal(t, "<stdin>", in.Name)

	_, err = fileinput.Open(filepath.Join(dir, "missing.lisp"))
	assert.True(t, os.IsNotExist(err), "expected not-exist error, got %v", err)
}
