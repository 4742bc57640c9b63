package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

// failingFs refuses to Stat or Open the given paths
type failingFs struct {
	afero.Fs
	failStat map[string]bool
	failOpen map[string]bool
}

func (f *failingFs) Stat(name string) (os.FileInfo, error) {
	if f.failStat[name] {
		return nil, os.ErrPermission
	}
	return f.Fs.Stat(name)
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if f.failOpen[name] {
		return nil, os.ErrPermission
	}
	return f.Fs.Open(name)
}

func newTestTree(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		assert.Nil(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func relPaths(in []*FileInfo) []string {
	out := []string{}
	for _, f := range in {
		out = append(out, f.Rel)
	}
	return out
}

func TestWalk(t *testing.T) {
	fs := newTestTree(t, map[string]string{
		"/data/a.txt":          "abc",
		"/data/sub/b.txt":      "hello",
		"/data/sub/deep/c.txt": "x",
	})
	fs.MkdirAll("/data/empty", 0755)

	found, total := NewCollector(fs, nil).Walk("/data")

	assert.Equal(t, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}, relPaths(found))
	assert.Equal(t, int64(9), total)
	assert.Equal(t, "/data/sub/b.txt", found[1].Path)
	assert.Equal(t, int64(5), found[1].Size)
}

func TestWalkSkipsFailures(t *testing.T) {
	fs := &failingFs{
		Fs: newTestTree(t, map[string]string{
			"/data/a.txt":        "abc",
			"/data/bad.txt":      "unreadable",
			"/data/locked/d.txt": "hidden",
			"/data/sub/b.txt":    "hello",
		}),
		failStat: map[string]bool{"/data/bad.txt": true},
		failOpen: map[string]bool{"/data/locked": true},
	}

	found, total := NewCollector(fs, nil).Walk("/data")

	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, relPaths(found))
	assert.Equal(t, int64(8), total)
}

func TestWalkMissingRoot(t *testing.T) {
	found, total := NewCollector(afero.NewMemMapFs(), nil).Walk("/nope")

	assert.Len(t, found, 0)
	assert.Equal(t, int64(0), total)
}

func TestWalkSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	assert.Nil(t, os.WriteFile(target, []byte("abc"), 0644))
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	found, total := NewCollector(afero.NewOsFs(), nil).Walk(root)

	assert.Equal(t, []string{"real.txt"}, relPaths(found))
	assert.Equal(t, int64(3), total)
}
