package local_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-fetch/pkg/remote/local"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	client := local.NewClient()
	root := t.TempDir()

	t.Run("CreateAndList", func(t *testing.T) {
		folder, err := client.CreateItem(ctx, root, "ab", remote.ItemKindFolder)
		require.NoError(t, err)
		require.Equal(t, remote.Item{ID: filepath.Join(root, "ab"), Name: "ab", Kind: remote.ItemKindFolder}, folder)

		file, err := client.CreateItem(ctx, folder.ID, "cdef", remote.ItemKindFile)
		require.NoError(t, err)
		require.NoError(t, client.UploadBytes(ctx, file, bytes.NewBufferString("Hello")))

		items, err := client.ListChildren(ctx, folder.ID, "")
		require.NoError(t, err)
		require.Equal(t, []remote.Item{{
			ID:        filepath.Join(root, "ab", "cdef"),
			Name:      "cdef",
			Kind:      remote.ItemKindFile,
			SizeBytes: 5,
		}}, items)

		items, err = client.ListChildren(ctx, root, "ab")
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, remote.ItemKindFolder, items[0].Kind)

		items, err = client.ListChildren(ctx, root, "nonexistent")
		require.NoError(t, err)
		require.Empty(t, items)
	})

	t.Run("Download", func(t *testing.T) {
		r, err := client.DownloadBytes(ctx, filepath.Join(root, "ab", "cdef"))
		require.NoError(t, err)
		contents, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.Equal(t, []byte("Hello"), contents)

		_, err = client.DownloadBytes(ctx, filepath.Join(root, "nonexistent"))
		require.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("GetItem", func(t *testing.T) {
		item, err := client.GetItem(ctx, filepath.Join(root, "ab", "cdef"))
		require.NoError(t, err)
		require.Equal(t, int64(5), item.SizeBytes)

		_, err = client.GetItem(ctx, filepath.Join(root, "nonexistent"))
		require.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("CreateExistingFolder", func(t *testing.T) {
		_, err := client.CreateItem(ctx, root, "ab", remote.ItemKindFolder)
		require.Equal(t, codes.AlreadyExists, status.Code(err))
	})

	t.Run("ListMissingFolder", func(t *testing.T) {
		_, err := client.ListChildren(ctx, filepath.Join(root, "nonexistent"), "")
		require.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("UploadLeavesNoTemporaryFiles", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(root, "ab"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}

func TestClientThroughRemote(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	source := filepath.Join(root, "source")
	require.NoError(t, os.WriteFile(source, []byte("Hello"), 0o666))

	// Path resolution should work against the local file system,
	// creating directories as needed.
	resolver := remote.NewPathResolver(local.NewClient(), local.RootID)
	transferer := remote.NewTransferer(local.NewClient(), resolver, nil)
	destination := append(splitPath(root), "cache", "ab", "cdef")
	require.NoError(t, transferer.Upload(ctx, source, destination, "cdef", false))

	contents, err := os.ReadFile(filepath.Join(root, "cache", "ab", "cdef"))
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), contents)
}

func splitPath(p string) []string {
	var segments []string
	for p != "/" && p != "." {
		segments = append([]string{filepath.Base(p)}, segments...)
		p = filepath.Dir(p)
	}
	return segments
}
