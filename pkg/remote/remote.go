package remote

import (
	"context"
	"iter"

	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-storage/pkg/util"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Remote provides path-based access to a container of a remote store,
// regardless of the backend. It is bound to a base Location. All
// Locations passed to its methods must refer to the same container as
// the base Location.
type Remote struct {
	base             location.Location
	client           Client
	resolver         *PathResolver
	transferer       *Transferer
	reportsProgress  bool
	batchConcurrency int64
}

// NewRemote creates a Remote. The rootID is the ID under which the
// backend stores the top-level children of the container. Existence
// checks performed by BatchExists() run with at most batchConcurrency
// in parallel. The ProgressReporter may be nil.
func NewRemote(base location.Location, client Client, rootID string, progressReporter ProgressReporter, batchConcurrency int64) *Remote {
	resolver := NewPathResolver(client, rootID)
	return &Remote{
		base:             base,
		client:           client,
		resolver:         resolver,
		transferer:       NewTransferer(client, resolver, progressReporter),
		reportsProgress:  progressReporter != nil,
		batchConcurrency: batchConcurrency,
	}
}

// Location returns the base Location of the Remote.
func (r *Remote) Location() location.Location {
	return r.base
}

// ReportsProgress returns whether transfers requesting progress
// reporting actually have their progress reported.
func (r *Remote) ReportsProgress() bool {
	return r.reportsProgress
}

func (r *Remote) checkLocation(l location.Location) error {
	if !r.base.SameContainer(l) {
		return status.Errorf(codes.InvalidArgument, "Location %#v does not belong to remote %#v", l.String(), r.base.String())
	}
	return nil
}

// Init ensures that the folder corresponding to the base Location
// exists, creating it and any of its parents if needed.
func (r *Remote) Init(ctx context.Context) error {
	if _, err := r.resolver.Resolve(ctx, r.base.Path, true); err != nil {
		return util.StatusWrapf(err, "Failed to initialize remote %#v", r.base.String())
	}
	return nil
}

// Resolve the ID of the item at a given Location, optionally creating
// missing folders.
func (r *Remote) Resolve(ctx context.Context, l location.Location, create bool) (string, error) {
	if err := r.checkLocation(l); err != nil {
		return "", err
	}
	return r.resolver.Resolve(ctx, l.Path, create)
}

// ListTree enumerates all files underneath a Location, yielding paths
// relative to that Location.
func (r *Remote) ListTree(ctx context.Context, l location.Location) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		id, err := r.Resolve(ctx, l, false)
		if err != nil {
			yield("", err)
			return
		}
		for p, err := range ListTree(ctx, r.client, id) {
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// ListCachePaths enumerates all files underneath the base Location,
// yielding paths that are prefixed with the base path.
func (r *Remote) ListCachePaths(ctx context.Context) iter.Seq2[string, error] {
	prefix := r.base.PathString()
	if prefix != "" {
		prefix += "/"
	}
	return func(yield func(string, error) bool) {
		for p, err := range r.ListTree(ctx, r.base) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(prefix+p, nil) {
				return
			}
		}
	}
}

// Upload a local file to a Location.
func (r *Remote) Upload(ctx context.Context, localSource string, destination location.Location, displayName string, reportProgress bool) error {
	if err := r.checkLocation(destination); err != nil {
		return err
	}
	return r.transferer.Upload(ctx, localSource, destination.Path, displayName, reportProgress)
}

// Download the file at a Location to the local file system.
func (r *Remote) Download(ctx context.Context, source location.Location, localDestination string, displayName string, reportProgress bool) error {
	if err := r.checkLocation(source); err != nil {
		return err
	}
	return r.transferer.Download(ctx, source.Path, localDestination, displayName, reportProgress)
}

// Exists returns whether an item is present at a Location.
func (r *Remote) Exists(ctx context.Context, l location.Location) (bool, error) {
	if _, err := r.Resolve(ctx, l, false); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BatchExists checks the existence of multiple Locations in parallel.
// The callback, if provided, is invoked for every Location once it has
// been checked. It may be called concurrently.
func (r *Remote) BatchExists(ctx context.Context, locations []location.Location, callback func(location.Location)) ([]bool, error) {
	results := make([]bool, len(locations))
	concurrency := semaphore.NewWeighted(r.batchConcurrency)
	group, groupCtx := errgroup.WithContext(ctx)
	for i, l := range locations {
		if err := concurrency.Acquire(groupCtx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer concurrency.Release(1)
			exists, err := r.Exists(groupCtx, l)
			if err != nil {
				return util.StatusWrapf(err, "Failed to check existence of %#v", l.String())
			}
			results[i] = exists
			if callback != nil {
				callback(l)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, util.StatusFromContext(ctx)
	}
	return results, nil
}
