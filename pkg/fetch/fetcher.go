package fetch

import (
	"context"
)

// Fetcher downloads a single file or directory that is part of a
// versioned repository to the local file system.
type Fetcher interface {
	// Fetch the output at a path inside the repository at a URL.
	// The revision may be left empty to use the default branch. The
	// local destination may be empty to store the output in the
	// current working directory, or point to an existing directory
	// to store the output inside of it.
	Fetch(ctx context.Context, repositoryURL, internalPath, localDestination, revision string) error
}
