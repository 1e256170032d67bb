package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	createFiles(t, root,
		"kodim01.png",
		"kodim02.PNG",
		"photo.jpeg",
		"anim.gif",
		"notes.txt",
		"clic/a.jpg",
		"clic/deep/b.png",
		".cache/c.png",
		"skip/d.png",
	)

	rel := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(root, filepath.FromSlash(n))
		}
		return out
	}

	tests := []struct {
		name string
		opts ScanOptions
		want []string
	}{
		{
			name: "images of the folder only",
			opts: ScanOptions{},
			want: rel("anim.gif", "kodim01.png", "kodim02.PNG", "photo.jpeg"),
		},
		{
			name: "recursive skips hidden and excluded folders",
			opts: ScanOptions{Recursive: true, ExcludeDirs: []string{"skip"}},
			want: rel("anim.gif", "clic/a.jpg", "clic/deep/b.png", "kodim01.png", "kodim02.PNG", "photo.jpeg"),
		},
		{
			name: "max depth",
			opts: ScanOptions{Recursive: true, MaxDepth: 2, ExcludeDirs: []string{"skip"}},
			want: rel("anim.gif", "clic/a.jpg", "kodim01.png", "kodim02.PNG", "photo.jpeg"),
		},
		{
			name: "pattern on names without extension",
			opts: ScanOptions{Pattern: `^kodim\d+$`},
			want: rel("kodim01.png", "kodim02.PNG"),
		},
		{
			name: "explicit extensions",
			opts: ScanOptions{Extensions: []string{"txt"}},
			want: rel("notes.txt"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanDirectory(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Files)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	root := t.TempDir()
	createFiles(t, root, "a.png")

	_, err := ScanDirectory(filepath.Join(root, "missing"), ScanOptions{})
	assert.Error(t, err)

	_, err = ScanDirectory(filepath.Join(root, "a.png"), ScanOptions{})
	assert.ErrorContains(t, err, "not a directory")

	_, err = ScanDirectory(root, ScanOptions{Pattern: "("})
	assert.ErrorContains(t, err, "invalid pattern")
}
