package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
)

// RootID is the ID of the root folder of the local file system.
const RootID = "/"

type client struct{}

// NewClient creates a remote.Client that stores items on the local file
// system. The ID of an item is its absolute path. Although paths can be
// accessed directly, going through remote.Client allows directories
// (e.g., network mounts) to be used as cache remotes like any other
// backend.
func NewClient() remote.Client {
	return client{}
}

func wrapError(err error, format string, args ...any) error {
	code := codes.Internal
	switch {
	case os.IsNotExist(err):
		code = codes.NotFound
	case os.IsExist(err):
		code = codes.AlreadyExists
	case os.IsPermission(err):
		code = codes.PermissionDenied
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}

func newItem(p string, fileInfo fs.FileInfo) remote.Item {
	item := remote.Item{
		ID:   p,
		Name: fileInfo.Name(),
		Kind: remote.ItemKindFile,
	}
	if fileInfo.IsDir() {
		item.Kind = remote.ItemKindFolder
	} else {
		item.SizeBytes = fileInfo.Size()
	}
	return item
}

func (client) ListChildren(ctx context.Context, parentID, name string) ([]remote.Item, error) {
	if name != "" {
		p := filepath.Join(parentID, name)
		fileInfo, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, wrapError(err, "Failed to inspect %#v", p)
		}
		return []remote.Item{newItem(p, fileInfo)}, nil
	}

	entries, err := os.ReadDir(parentID)
	if err != nil {
		return nil, wrapError(err, "Failed to read directory %#v", parentID)
	}
	items := make([]remote.Item, 0, len(entries))
	for _, entry := range entries {
		fileInfo, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				// Removed while listing.
				continue
			}
			return nil, wrapError(err, "Failed to inspect %#v", filepath.Join(parentID, entry.Name()))
		}
		items = append(items, newItem(filepath.Join(parentID, entry.Name()), fileInfo))
	}
	return items, nil
}

func (client) CreateItem(ctx context.Context, parentID, name string, kind remote.ItemKind) (remote.Item, error) {
	p := filepath.Join(parentID, name)
	if kind == remote.ItemKindFolder {
		if err := os.Mkdir(p, 0o777); err != nil {
			return remote.Item{}, wrapError(err, "Failed to create directory %#v", p)
		}
	} else {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
		if err != nil {
			return remote.Item{}, wrapError(err, "Failed to create file %#v", p)
		}
		f.Close()
	}
	return remote.Item{ID: p, Name: name, Kind: kind}, nil
}

// UploadBytes writes the contents to a temporary file first, so that
// readers never observe partially written contents.
func (client) UploadBytes(ctx context.Context, item remote.Item, r io.Reader) error {
	f, err := os.CreateTemp(filepath.Dir(item.ID), "."+filepath.Base(item.ID)+".*.tmp")
	if err != nil {
		return wrapError(err, "Failed to create temporary file for %#v", item.ID)
	}
	temporaryPath := f.Name()
	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(temporaryPath)
		return util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to write %#v", item.ID)
	}
	if err := os.Rename(temporaryPath, item.ID); err != nil {
		os.Remove(temporaryPath)
		return wrapError(err, "Failed to move contents into %#v", item.ID)
	}
	return nil
}

func (client) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	f, err := os.Open(id)
	if err != nil {
		return nil, wrapError(err, "Failed to open %#v", id)
	}
	return f, nil
}

func (client) GetItem(ctx context.Context, id string) (remote.Item, error) {
	fileInfo, err := os.Lstat(id)
	if err != nil {
		return remote.Item{}, wrapError(err, "Failed to inspect %#v", id)
	}
	return newItem(id, fileInfo), nil
}
