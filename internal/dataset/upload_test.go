package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckExtension(t *testing.T) {
	for _, name := range []string{"a.csv", "b.XLSX", "dir/c.xls"} {
		assert.NoError(t, CheckExtension(name), name)
	}
	for _, name := range []string{"a.json", "noext", "a.csv.gz"} {
		assert.ErrorIs(t, CheckExtension(name), ErrUnsupportedFile, name)
	}
}

func TestReadUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	data, err := ReadUpload(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	_, err = ReadUpload(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = ReadUpload(filepath.Join(dir, "data.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}
