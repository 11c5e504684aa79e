package jingle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func addJingle(t *testing.T, dir, file, metaJSON string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, file), "audio")
	writeFile(t, filepath.Join(dir, file+MetaSuffix), metaJSON)
}

func TestCatalog_Reload(t *testing.T) {
	dir := t.TempDir()
	addJingle(t, dir, "b.mp3", `{"id":"bbbbb","title":"Second","length":2.2}`)
	addJingle(t, dir, "a.mp3", `{"id":"aaaaa","title":"First","length":1.2}`)

	c := NewCatalog(dir, zerolog.Nop())
	n, err := c.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "aaaaa", all[0].ID)
	assert.Equal(t, "bbbbb", all[1].ID)

	j, ok := c.Get("bbbbb")
	require.True(t, ok)
	assert.Equal(t, "Second", j.Title)
	assert.Equal(t, filepath.Join(dir, "b.mp3"), j.Path)
	assert.InDelta(t, 2.2, j.Length, 1e-9)

	assert.Equal(t, []string{"[aaaaa](a.mp3) First", "[bbbbb](b.mp3) Second"}, c.Lines())
}

func TestCatalog_ReloadSkipsBrokenEntries(t *testing.T) {
	dir := t.TempDir()
	addJingle(t, dir, "good.mp3", `{"id":"good1","title":"Good","length":3}`)
	addJingle(t, dir, "malformed.mp3", `{"id":`)
	addJingle(t, dir, "noid.mp3", `{"title":"No id","length":3}`)
	addJingle(t, dir, "notitle.mp3", `{"id":"nott1","length":3}`)
	addJingle(t, dir, "nolength.mp3", `{"id":"nolen","title":"No length"}`)
	addJingle(t, dir, "zdup.mp3", `{"id":"good1","title":"Duplicate","length":3}`)
	writeFile(t, filepath.Join(dir, "orphan.mp3"+MetaSuffix), `{"id":"orphn","title":"Orphan","length":1}`)
	writeFile(t, filepath.Join(dir, "readme.txt"), "not a jingle")

	c := NewCatalog(dir, zerolog.Nop())
	n, err := c.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	j, ok := c.Get("good1")
	require.True(t, ok)
	assert.Equal(t, "Good", j.Title)
	assert.False(t, c.Has("orphn"))
	assert.False(t, c.Has("nott1"))
	assert.False(t, c.Has("nolen"))
}

func TestCatalog_ReloadAcceptsNumericStringLength(t *testing.T) {
	dir := t.TempDir()
	addJingle(t, dir, "quoted.mp3", `{"id":"quote","title":"Quoted","length":"3.2"}`)
	addJingle(t, dir, "words.mp3", `{"id":"words","title":"Words","length":"long"}`)

	c := NewCatalog(dir, zerolog.Nop())
	n, err := c.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	j, ok := c.Get("quote")
	require.True(t, ok)
	assert.InDelta(t, 3.2, j.Length, 1e-9)
	assert.False(t, c.Has("words"))
}

func TestCatalog_ReloadReplacesEverything(t *testing.T) {
	dir := t.TempDir()
	addJingle(t, dir, "a.mp3", `{"id":"aaaaa","title":"A","length":1}`)

	c := NewCatalog(dir, zerolog.Nop())
	_, err := c.Reload()
	require.NoError(t, err)
	before := c.All()

	require.NoError(t, os.Remove(filepath.Join(dir, "a.mp3"+MetaSuffix)))
	addJingle(t, dir, "b.mp3", `{"id":"bbbbb","title":"B","length":1}`)

	_, err = c.Reload()
	require.NoError(t, err)
	assert.False(t, c.Has("aaaaa"))
	assert.True(t, c.Has("bbbbb"))

	// slices handed out earlier are not affected by the swap
	require.Len(t, before, 1)
	assert.Equal(t, "aaaaa", before[0].ID)
}

func TestCatalog_ReloadUnreadableDirectoryKeepsCatalog(t *testing.T) {
	dir := t.TempDir()
	addJingle(t, dir, "a.mp3", `{"id":"aaaaa","title":"A","length":1}`)

	c := NewCatalog(dir, zerolog.Nop())
	_, err := c.Reload()
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	_, err = c.Reload()
	require.Error(t, err)
	assert.True(t, c.Has("aaaaa"))
}

func TestCatalog_Random(t *testing.T) {
	c := NewCatalog(t.TempDir(), zerolog.Nop())
	_, err := c.Random()
	require.ErrorIs(t, err, ErrEmptyCatalog)

	dir := c.Dir()
	addJingle(t, dir, "a.mp3", `{"id":"aaaaa","title":"A","length":1}`)
	addJingle(t, dir, "b.mp3", `{"id":"bbbbb","title":"B","length":1}`)
	_, err = c.Reload()
	require.NoError(t, err)

	j, err := c.RandomWith(func(n int) int {
		assert.Equal(t, 2, n)
		return 1
	})
	require.NoError(t, err)
	assert.Equal(t, "bbbbb", j.ID)

	j, err = c.Random()
	require.NoError(t, err)
	assert.Contains(t, []string{"aaaaa", "bbbbb"}, j.ID)
}
