package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}

func TestCombinedWriter_WritesToAll(t *testing.T) {
	stdout := bytes.NewBufferString("boot\n")
	file := &bytes.Buffer{}

	cw := NewCombinedWriter(stdout, file)
	require.Len(t, cw.Writers, 2)

	lines := []string{"lift logged\n", "run logged\n"}
	for _, line := range lines {
		n, err := cw.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, 2*len(line), n)
	}

	assert.NoError(t, cw.Err)
	assert.Equal(t, "boot\nlift logged\nrun logged\n", stdout.String())
	assert.Equal(t, "lift logged\nrun logged\n", file.String())
}

func TestCombinedWriter_AccumulatesErrors(t *testing.T) {
	file := &bytes.Buffer{}
	cw := NewCombinedWriter(failingWriter{}, file)
	assert.NoError(t, cw.Err)

	n, err := cw.Write([]byte("first"))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Error(t, cw.Err)
	// the healthy writer still receives the line
	assert.Equal(t, len("first"), n)

	_, err = cw.Write([]byte("second"))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Len(t, multierr.Errors(cw.Err), 2)
	assert.Equal(t, "firstsecond", file.String())
}
