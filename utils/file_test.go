package utils

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilesWithExt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.tif", "a.TIF", "c.tiff", "d.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "e.tif"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f.tif"), nil, 0o644))

	files, err := ListFilesWithExt(dir, ".tif")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.TIF"), filepath.Join(dir, "b.tif")}, files)

	_, err = ListFilesWithExt(filepath.Join(dir, "d.txt"), ".tif")
	assert.ErrorIs(t, err, ErrNotDir)
	_, err = ListFilesWithExt(filepath.Join(dir, "missing"), ".tif")
	assert.True(t, os.IsNotExist(err))
}

func TestMoveAndCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n"), 0o640))

	cp := filepath.Join(dir, "copy.csv")
	require.NoError(t, CopyFile(src, cp))
	data, err := os.ReadFile(cp)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	dst := filepath.Join(dir, "dst.csv")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))
	require.NoError(t, MoveFile(src, dst))
	assert.NoFileExists(t, src)
	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	assert.Error(t, MoveFile(src, dst))
}

func TestGetUniqSubDir(t *testing.T) {
	dir := t.TempDir()
	a, err := GetUniqSubDir(dir, ".staging-")
	require.NoError(t, err)
	b, err := GetUniqSubDir(dir, ".staging-")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.True(t, strings.HasPrefix(filepath.Base(a), ".staging-"))
	assert.Equal(t, "2020_biomass", GetFilenameWithoutExt("/data/2020_biomass.tif"))
}

func TestScaffold(t *testing.T) {
	base := t.TempDir()
	dirs := []string{"scripts", "data/output/csv", "docs"}
	created, err := Scaffold(base, dirs)
	require.NoError(t, err)
	assert.Equal(t, dirs, created)
	for _, d := range dirs {
		assert.FileExists(t, filepath.Join(base, d, GIT_KEEP))
	}
	doc := filepath.Join(base, "docs", "workflow_documentation.md")
	assert.FileExists(t, doc)

	require.NoError(t, os.WriteFile(doc, []byte("edited"), 0o644))
	_, err = Scaffold(base, dirs)
	require.NoError(t, err)
	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))
}

func TestEncoding(t *testing.T) {
	const text = "像元,年份\n"
	var buf bytes.Buffer
	w := EncodingWriter(&buf, GBK)
	_, err := io.WriteString(w, text)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NotEqual(t, text, buf.String())

	got, err := io.ReadAll(DecodingReader(&buf, "gbk"))
	require.NoError(t, err)
	assert.Equal(t, text, string(got))

	buf.Reset()
	w = EncodingWriter(&buf, UTF_8)
	_, err = io.WriteString(w, text)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, text, buf.String())

	assert.Equal(t, "pixel_id", TrimBOM("\ufeffpixel_id"))
}
