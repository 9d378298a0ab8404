package remote

import (
	"context"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/util"
)

// RootCache holds the names and IDs of the immediate children of the
// root folder of a remote store. It is populated by a single listing
// upon first use, and is never refreshed afterwards. Callers that
// require fresh data must create a new RootCache (or a new
// PathResolver, which owns one).
//
// Remote stores may contain multiple children with the same name. In
// that case the child that is listed first is retained, which is the
// same choice PathResolver makes when descending into a folder.
type RootCache struct {
	client Client
	rootID string

	lock     sync.Mutex
	children map[string]string
}

// NewRootCache creates a RootCache for the children of a given root
// folder. No calls against the Client are made until Lookup() is
// called.
func NewRootCache(client Client, rootID string) *RootCache {
	return &RootCache{
		client: client,
		rootID: rootID,
	}
}

// Lookup the ID of a child of the root folder. The first call lists all
// children of the root folder. Failures to list the root folder are not
// memoized.
func (rc *RootCache) Lookup(ctx context.Context, name string) (string, bool, error) {
	rc.lock.Lock()
	defer rc.lock.Unlock()

	if rc.children == nil {
		items, err := rc.client.ListChildren(ctx, rc.rootID, "")
		if err != nil {
			return "", false, util.StatusWrapf(err, "Failed to list children of root %#v", rc.rootID)
		}
		children := make(map[string]string, len(items))
		for _, item := range items {
			if _, ok := children[item.Name]; !ok {
				children[item.Name] = item.ID
			}
		}
		rc.children = children
	}
	id, ok := rc.children[name]
	return id, ok, nil
}
