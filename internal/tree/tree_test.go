package tree_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdfetch/gdfetch/internal/fetch"
	"github.com/gdfetch/gdfetch/internal/remote"
	"github.com/gdfetch/gdfetch/internal/remote/remotetest"
	"github.com/gdfetch/gdfetch/internal/tree"
)

var errBroken = errors.New("connection reset by peer")

func newMaterializer(svc remote.Service, fs afero.Fs, opts tree.Options) *tree.Materializer {
	f := fetch.New(svc, fs, fetch.Options{ChunkSize: 3, MaxRetries: 2}, nil)
	return tree.New(svc, fs, f, opts)
}

func assertFile(t *testing.T, fs afero.Fs, path, want string) {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err, path)
	assert.Equal(t, want, string(data), path)
}

// nested builds:
//
//	root/
//	  a.txt
//	  docs/
//	    b.txt
//	    deep/
//	      c.txt
//	  empty/
//	  z.txt
func nested() *remotetest.Service {
	svc := remotetest.New("root")
	svc.AddFile("root", "a", "a.txt", []byte("alpha"))
	svc.AddFolder("root", "docs", "docs")
	svc.AddFile("docs", "b", "b.txt", []byte("bravo"))
	svc.AddFolder("docs", "deep", "deep")
	svc.AddFile("deep", "c", "c.txt", []byte("charlie"))
	svc.AddFolder("root", "empty", "empty")
	svc.AddFile("root", "z", "z.txt", []byte("zulu"))
	return svc
}

func TestMaterializeNestedStructure(t *testing.T) {
	for _, parallel := range []int{1, 4} {
		svc := nested()
		fs := afero.NewMemMapFs()

		rep, err := newMaterializer(svc, fs, tree.Options{Parallel: parallel}).Materialize(context.Background(), "root", "/out")
		require.NoError(t, err)

		assertFile(t, fs, "/out/a.txt", "alpha")
		assertFile(t, fs, "/out/docs/b.txt", "bravo")
		assertFile(t, fs, "/out/docs/deep/c.txt", "charlie")
		assertFile(t, fs, "/out/z.txt", "zulu")
		isDir, err := afero.IsDir(fs, "/out/empty")
		require.NoError(t, err)
		assert.True(t, isDir)

		assert.Equal(t, 4, rep.Count(fetch.Succeeded))
		assert.Equal(t, 4, rep.Folders())
		assert.Equal(t, 0, rep.Failures())
	}
}

func TestMaterializeDepthFirstListingOrder(t *testing.T) {
	svc := nested()
	fs := afero.NewMemMapFs()

	rep, err := newMaterializer(svc, fs, tree.Options{}).Materialize(context.Background(), "root", "/out")
	require.NoError(t, err)

	var got []string
	for _, res := range rep.Results() {
		got = append(got, res.Task.LocalPath)
	}
	assert.Equal(t, []string{"/out/a.txt", "/out/docs/b.txt", "/out/docs/deep/c.txt", "/out/z.txt"}, got)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	svc := nested()
	fs := afero.NewMemMapFs()
	m := newMaterializer(svc, fs, tree.Options{})

	for i := 0; i < 2; i++ {
		_, err := m.Materialize(context.Background(), "root", "/out")
		require.NoError(t, err)
	}
	assertFile(t, fs, "/out/docs/deep/c.txt", "charlie")
}

func TestMaterializePartialFailure(t *testing.T) {
	svc := remotetest.New("root")
	svc.AddFile("root", "1", "one", []byte("1"))
	svc.AddFile("root", "2", "two", []byte("22"))
	svc.AddFile("root", "3", "three", []byte("333"))
	svc.Inject("2", remotetest.Fault{Attempts: -1, AfterBytes: -1, Err: errBroken})
	fs := afero.NewMemMapFs()

	rep, err := newMaterializer(svc, fs, tree.Options{}).Materialize(context.Background(), "root", "/out")
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrRetryExhausted)

	assertFile(t, fs, "/out/one", "1")
	assertFile(t, fs, "/out/three", "333")
	exists, _ := afero.Exists(fs, "/out/two")
	assert.False(t, exists)
	assert.Equal(t, 2, svc.Opens("2"))
	assert.Equal(t, 2, rep.Count(fetch.Succeeded))
	assert.Equal(t, 1, rep.Count(fetch.Exhausted))
	assert.Equal(t, 1, rep.Failures())
}

func TestMaterializeSubfolderListingError(t *testing.T) {
	svc := remotetest.New("root")
	svc.AddFile("root", "1", "one", []byte("1"))
	// Listed as a folder, but unknown to the service afterwards.
	svc.AddFolder("root", "gone", "gone")
	svc.AddFile("root", "2", "two", []byte("2"))
	fs := afero.NewMemMapFs()
	m := newMaterializer(brokenFolder{Service: svc, id: "gone"}, fs, tree.Options{})

	rep, err := m.Materialize(context.Background(), "root", "/out")
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrNotFound)
	require.Len(t, rep.Errors(), 1)
	assertFile(t, fs, "/out/one", "1")
	assertFile(t, fs, "/out/two", "2")
}

type brokenFolder struct {
	*remotetest.Service
	id string
}

func (b brokenFolder) ListChildren(ctx context.Context, folderID string) ([]*remote.Entry, error) {
	if folderID == b.id {
		return nil, remote.ErrNotFound
	}
	return b.Service.ListChildren(ctx, folderID)
}

func TestMaterializeMissingRoot(t *testing.T) {
	svc := remotetest.New("root")
	fs := afero.NewMemMapFs()

	rep, err := newMaterializer(svc, fs, tree.Options{}).Materialize(context.Background(), "nope", "/out")
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.Equal(t, 1, rep.Failures())
}

func TestMaterializeDuplicateLastWriteWins(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		svc := remotetest.New("root")
		svc.AddFile("root", "1", "same.txt", []byte("first"))
		svc.AddFile("root", "2", "other.txt", []byte("other"))
		svc.AddFile("root", "3", "same.txt", []byte("second"))
		fs := afero.NewMemMapFs()

		rep, err := newMaterializer(svc, fs, tree.Options{Parallel: parallel}).Materialize(context.Background(), "root", "/out")
		require.NoError(t, err)

		assertFile(t, fs, "/out/same.txt", "second")
		assertFile(t, fs, "/out/other.txt", "other")
		assert.Equal(t, 3, rep.Count(fetch.Succeeded))
		entries, err := afero.ReadDir(fs, "/out")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	}
}

func TestMaterializeFileAndFolderSameName(t *testing.T) {
	tests := []struct {
		name  string
		build func(svc *remotetest.Service)
		check func(t *testing.T, fs afero.Fs, svc *remotetest.Service, rep *tree.Report)
	}{
		{
			name: "folder then file",
			build: func(svc *remotetest.Service) {
				svc.AddFolder("root", "dx", "x")
				svc.AddFile("dx", "in", "inner.txt", []byte("inner"))
				svc.AddFile("root", "fx", "x", []byte("file"))
			},
			check: func(t *testing.T, fs afero.Fs, svc *remotetest.Service, rep *tree.Report) {
				assertFile(t, fs, "/out/x", "file")
				assert.Equal(t, 1, svc.Opens("fx"))
				assert.Equal(t, 0, svc.Opens("in"))
				assert.Equal(t, 1, rep.Count(fetch.Succeeded))
			},
		},
		{
			name: "file then folder",
			build: func(svc *remotetest.Service) {
				svc.AddFile("root", "fx", "x", []byte("file"))
				svc.AddFolder("root", "dx", "x")
				svc.AddFile("dx", "in", "inner.txt", []byte("inner"))
			},
			check: func(t *testing.T, fs afero.Fs, svc *remotetest.Service, rep *tree.Report) {
				assertFile(t, fs, "/out/x/inner.txt", "inner")
				assert.Equal(t, 0, svc.Opens("fx"))
				assert.Equal(t, 1, rep.Count(fetch.Succeeded))
				assert.Equal(t, 1, rep.Count(fetch.Skipped))
			},
		},
	}
	for _, tt := range tests {
		for _, parallel := range []int{1, 3} {
			t.Run(tt.name, func(t *testing.T) {
				svc := remotetest.New("root")
				tt.build(svc)
				fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())

				rep, err := newMaterializer(svc, fs, tree.Options{Parallel: parallel}).Materialize(context.Background(), "root", "/out")
				require.NoError(t, err)

				assert.Equal(t, 0, rep.Count(fetch.Exhausted))
				assert.Equal(t, 0, rep.Count(fetch.Failed))
				tt.check(t, fs, svc, rep)
			})
		}
	}
}

func TestMaterializeRenameDuplicates(t *testing.T) {
	svc := remotetest.New("root")
	svc.AddFile("root", "1", "same.txt", []byte("first"))
	svc.AddFile("root", "2", "same.txt", []byte("second"))
	svc.AddFile("root", "3", "same.txt", []byte("third"))
	svc.AddFolder("root", "d1", "dir")
	svc.AddFolder("root", "d2", "dir")
	svc.AddFile("d2", "4", "x", []byte("x"))
	fs := afero.NewMemMapFs()

	_, err := newMaterializer(svc, fs, tree.Options{RenameDuplicates: true}).Materialize(context.Background(), "root", "/out")
	require.NoError(t, err)

	assertFile(t, fs, "/out/same.txt", "first")
	assertFile(t, fs, "/out/same_2.txt", "second")
	assertFile(t, fs, "/out/same_3.txt", "third")
	assertFile(t, fs, "/out/dir_2/x", "x")
}

func TestMaterializeUnsafeNames(t *testing.T) {
	svc := remotetest.New("root")
	svc.AddFile("root", "1", "../escape", []byte("e"))
	svc.AddFile("root", "2", "..", []byte("dots"))
	svc.AddFile("root", "3", "a/b", []byte("ab"))
	fs := afero.NewMemMapFs()

	_, err := newMaterializer(svc, fs, tree.Options{}).Materialize(context.Background(), "root", "/out/root")
	require.NoError(t, err)

	assertFile(t, fs, "/out/root/.._escape", "e")
	assertFile(t, fs, "/out/root/__", "dots")
	assertFile(t, fs, "/out/root/a_b", "ab")
	exists, _ := afero.Exists(fs, "/out/escape")
	assert.False(t, exists)
}

func TestMaterializeCancelled(t *testing.T) {
	svc := nested()
	fs := afero.NewMemMapFs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMaterializer(svc, fs, tree.Options{}).Materialize(ctx, "root", "/out")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, svc.Lists())
}

func TestMaterializeParallelWritesEveryFile(t *testing.T) {
	svc := remotetest.New("root")
	want := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		svc.AddFile("root", "id-"+name, name, []byte(name+name))
		want[filepath.Join("/out", name)] = name + name
	}
	fs := afero.NewMemMapFs()

	rep, err := newMaterializer(svc, fs, tree.Options{Parallel: 3}).Materialize(context.Background(), "root", "/out")
	require.NoError(t, err)

	var paths []string
	for _, res := range rep.Results() {
		paths = append(paths, res.Task.LocalPath)
	}
	sort.Strings(paths)
	assert.Len(t, paths, len(want))
	for path, content := range want {
		assertFile(t, fs, path, content)
	}
}
