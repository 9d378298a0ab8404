package remote

import (
	"context"
	"iter"

	"github.com/buildbarn/bb-storage/pkg/util"
)

// ListTree lazily enumerates all files underneath a folder, yielding
// their paths relative to that folder. Folders are traversed depth
// first, in the order in which the backend lists them. Folders
// themselves are not yielded.
//
// Every iteration over the returned sequence queries the backend anew.
// If a listing fails, the error is yielded and iteration stops.
func ListTree(ctx context.Context, client Client, rootID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		listTree(ctx, client, rootID, "", yield)
	}
}

func listTree(ctx context.Context, client Client, folderID, prefix string, yield func(string, error) bool) bool {
	items, err := client.ListChildren(ctx, folderID, "")
	if err != nil {
		if prefix == "" {
			err = util.StatusWrap(err, "Failed to list root folder")
		} else {
			err = util.StatusWrapf(err, "Failed to list folder %#v", prefix[:len(prefix)-1])
		}
		yield("", err)
		return false
	}
	for _, item := range items {
		if item.Kind == ItemKindFolder {
			if !listTree(ctx, client, item.ID, prefix+item.Name+"/", yield) {
				return false
			}
		} else if !yield(prefix+item.Name, nil) {
			return false
		}
	}
	return true
}
