package repository

import (
	"context"

	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-fetch/pkg/remote"
)

// State guards the local bookkeeping of a Repository against concurrent
// use by multiple processes.
type State interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Artifact is an output tracked by the index of a Repository.
type Artifact interface {
	// RelativePath returns the path of the output relative to the
	// root of the working tree, using forward slashes.
	RelativePath() string
	// IsCached returns whether the contents of the output are stored
	// in the content addressable cache, as opposed to only being
	// present in the working tree.
	IsCached() bool
	// Fingerprint returns the key under which the contents of the
	// output are stored in the cache.
	Fingerprint() string
	// SetOutputPath changes the location at which Checkout()
	// materializes the output. By default, outputs are materialized
	// inside the working tree.
	SetOutputPath(outputPath string)
	// Checkout materializes the contents of the output from the
	// local cache, using a FileInstaller. The contents must have
	// been pulled from the remote first.
	Checkout(ctx context.Context, installer cas.FileInstaller) error
}

// Repository is a versioned repository that has been cloned to the
// local file system.
type Repository interface {
	// WorkingTreePath returns the absolute path of the root of the
	// working tree.
	WorkingTreePath() string
	State() State
	SetState(state State)
	// FindArtifact looks up the Artifact whose output path matches
	// a path relative to the root of the working tree. Absolute
	// paths are also accepted, as long as they point into the
	// working tree. NotFound is returned if no output matches.
	FindArtifact(ctx context.Context, p string) (Artifact, error)
	// Pull the cache entries of Artifacts from the default remote
	// of the repository into the local cache.
	Pull(ctx context.Context, artifacts []Artifact) error
}

// Provider of Repositories. It clones repositories into a scratch
// directory on the local file system.
type Provider interface {
	// Open clones the repository at a URL into the scratch
	// directory, checking out a given revision. If the revision is
	// empty, the default branch is checked out. FailedPrecondition is
	// returned if the URL does not refer to a repository.
	Open(ctx context.Context, url, revision, scratchDirectory string) (Repository, error)
}

// RemoteOpener creates Remotes for Locations. It is used to access the
// remote referenced by the configuration of a Repository.
type RemoteOpener interface {
	NewRemoteFromLocation(l location.Location) (*remote.Remote, error)
}
