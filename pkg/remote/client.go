package remote

import (
	"context"
	"io"
)

// ItemKind distinguishes folders from files in a remote store.
type ItemKind int

const (
	// ItemKindFile denotes an item that has contents.
	ItemKindFile ItemKind = iota
	// ItemKindFolder denotes an item that may have children.
	ItemKindFolder
)

func (k ItemKind) String() string {
	switch k {
	case ItemKindFile:
		return "file"
	case ItemKindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Item is an entry in a remote store. The ID is assigned by the store
// and is only meaningful for equality and subsequent lookups against
// that same store.
type Item struct {
	ID        string
	Name      string
	Kind      ItemKind
	SizeBytes int64
}

// Client provides access to a remote store that does not offer
// path-based addressing. Items can only be reached by listing the
// children of a parent item.
//
// Implementations are responsible for authentication and for
// translating backend errors to gRPC status codes. Items that have been
// moved to the trash are never returned.
type Client interface {
	// ListChildren returns the children of a folder. If name is
	// not empty, only children having exactly that name are
	// returned. Duplicate names are permitted by some backends, in
	// which case all of them are returned in listing order.
	ListChildren(ctx context.Context, parentID, name string) ([]Item, error)

	// CreateItem creates a new, empty file or folder underneath a
	// folder.
	CreateItem(ctx context.Context, parentID, name string, kind ItemKind) (Item, error)

	// UploadBytes replaces the contents of a file.
	UploadBytes(ctx context.Context, item Item, r io.Reader) error

	// DownloadBytes returns a stream of the contents of a file.
	DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error)

	// GetItem returns the metadata of a single item.
	GetItem(ctx context.Context, id string) (Item, error)
}
