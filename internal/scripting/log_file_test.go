package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLogFile_Rotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := OpenLogFile(path, 10, 2)
	require.NoError(t, err)
	defer l.Close()

	for _, line := range []string{"aaaaaa\n", "bbbbbb\n", "cccccc\n", "dddddd\n"} {
		_, err := l.Write([]byte(line))
		require.NoError(t, err)
	}

	assert.Equal(t, "dddddd\n", readString(t, path))
	assert.Equal(t, "cccccc\n", readString(t, path+".1"))
	assert.Equal(t, "bbbbbb\n", readString(t, path+".2"))
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestLogFile_RotateFailureKeepsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	// a non-empty directory in place of the first backup blocks the rename
	require.NoError(t, os.MkdirAll(filepath.Join(path+".1", "blocker"), 0o755))

	l, err := OpenLogFile(path, 10, 1)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Write([]byte("aaaaaa\n"))
	require.NoError(t, err)
	n, err := l.Write([]byte("bbbbbb\n"))
	assert.Error(t, err)
	assert.Equal(t, 7, n)
	_, err = l.Write([]byte("cccccc\n"))
	assert.Error(t, err)
	assert.Equal(t, "aaaaaa\nbbbbbb\ncccccc\n", readString(t, path))

	require.NoError(t, os.RemoveAll(path+".1"))
	_, err = l.Write([]byte("dddddd\n"))
	require.NoError(t, err)
	assert.Equal(t, "dddddd\n", readString(t, path))
	assert.Equal(t, "aaaaaa\nbbbbbb\ncccccc\n", readString(t, path+".1"))
}

func TestLogFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := OpenLogFile(path, 4, 0)
	require.NoError(t, err)

	_, err = l.Write([]byte("one\n"))
	require.NoError(t, err)
	_, err = l.Write([]byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.Equal(t, "two\n", readString(t, path))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = l.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestLogFile_AppendsAndOversized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	l, err := OpenLogFile(path, 8, 1)
	require.NoError(t, err)
	defer l.Close()

	big := strings.Repeat("x", 20) + "\n"
	_, err = l.Write([]byte(big))
	require.NoError(t, err)

	assert.Equal(t, big, readString(t, path))
	assert.Equal(t, "old\n", readString(t, path+".1"))
}

func TestLogFile_Unbounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := OpenLogFile(path, 0, 3)
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 100; i++ {
		_, err := l.Write([]byte("line\n"))
		require.NoError(t, err)
	}
	assert.Len(t, readString(t, path), 500)
}
