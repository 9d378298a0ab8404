package remote

import (
	"context"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PathResolver translates slash-separated paths relative to a root
// folder to the IDs of items in a remote store, by walking the path one
// segment at a time. It optionally creates folders for segments that
// are missing.
//
// The children of the root folder are memoized in a RootCache for the
// lifetime of the PathResolver. Everything below the root is queried
// on every call.
type PathResolver struct {
	client    Client
	rootID    string
	rootCache *RootCache
}

// NewPathResolver creates a PathResolver for a given root folder.
func NewPathResolver(client Client, rootID string) *PathResolver {
	return &PathResolver{
		client:    client,
		rootID:    rootID,
		rootCache: NewRootCache(client, rootID),
	}
}

// RootID returns the ID of the root folder relative to which paths are
// resolved.
func (pr *PathResolver) RootID() string {
	return pr.rootID
}

// Resolve the ID of the item at a given path. If create is set, missing
// segments are created as folders. If create is not set and any
// segment does not exist, an error with code NOT_FOUND is returned.
//
// If a folder contains multiple children with the same name, the one
// listed first is used.
func (pr *PathResolver) Resolve(ctx context.Context, path []string, create bool) (string, error) {
	if len(path) == 0 {
		return pr.rootID, nil
	}

	// Top-level names can be resolved without issuing a query.
	parentID := pr.rootID
	remaining := path
	if id, ok, err := pr.rootCache.Lookup(ctx, path[0]); err != nil {
		return "", err
	} else if ok {
		if len(path) == 1 {
			return id, nil
		}
		parentID = id
		remaining = path[1:]
	}

	walked := len(path) - len(remaining)
	for _, segment := range remaining {
		walked++
		items, err := pr.client.ListChildren(ctx, parentID, segment)
		if err != nil {
			return "", util.StatusWrapf(err, "Failed to look up %#v", strings.Join(path[:walked], "/"))
		}
		if id, ok := firstWithName(items, segment); ok {
			parentID = id
			continue
		}

		if !create {
			return "", status.Errorf(codes.NotFound, "Path %#v does not exist", strings.Join(path[:walked], "/"))
		}
		item, err := pr.client.CreateItem(ctx, parentID, segment, ItemKindFolder)
		if err != nil {
			return "", util.StatusWrapf(err, "Failed to create folder %#v", strings.Join(path[:walked], "/"))
		}
		parentID = item.ID
	}
	return parentID, nil
}

// firstWithName returns the ID of the first item having an exact name.
// Backends may match names case insensitively, which is why the
// results of filtered listings are checked once more.
func firstWithName(items []Item, name string) (string, bool) {
	for _, item := range items {
		if item.Name == name {
			return item.ID, true
		}
	}
	return "", false
}
