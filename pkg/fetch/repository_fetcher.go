package fetch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/hashicorp/go-multierror"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type repositoryFetcher struct {
	provider          repository.Provider
	uuidGenerator     util.UUIDGenerator
	installer         cas.FileInstaller
	workingTreeCopier workingTreeCopier
	logger            *zap.Logger
}

// NewRepositoryFetcher creates a Fetcher that clones repositories
// using a Provider. Outputs stored in the cache of the repository are
// pulled from its remote and checked out using a FileInstaller. Other
// outputs are copied from the working tree of the clone.
//
// Clones are stored in a scratch directory that is created next to the
// output, so that files can be hardlinked or cloned into place. The
// scratch directory is removed once fetching completes, regardless of
// whether it succeeded.
func NewRepositoryFetcher(provider repository.Provider, uuidGenerator util.UUIDGenerator, installer cas.FileInstaller, logger *zap.Logger) Fetcher {
	return &repositoryFetcher{
		provider:          provider,
		uuidGenerator:     uuidGenerator,
		installer:         installer,
		workingTreeCopier: workingTreeCopier{logger: logger},
		logger:            logger,
	}
}

func (f *repositoryFetcher) Fetch(ctx context.Context, repositoryURL, internalPath, localDestination, revision string) (err error) {
	// Validate the output before doing any I/O against the
	// repository.
	output, err := ResolveOutputPath(internalPath, localDestination)
	if err != nil {
		return err
	}

	scratchID, err := f.uuidGenerator()
	if err != nil {
		return util.StatusWrapWithCode(err, codes.Internal, "Failed to generate scratch directory name")
	}
	scratchDirectory := filepath.Join(filepath.Dir(output), "."+scratchID.String())
	if err := os.Mkdir(scratchDirectory, 0o777); err != nil {
		return wrapCopyError(err, "Failed to create scratch directory %#v", scratchDirectory)
	}
	defer func() {
		if removeErr := os.RemoveAll(scratchDirectory); removeErr != nil {
			removeErr = util.StatusWrapfWithCode(removeErr, codes.Internal, "Failed to remove scratch directory %#v", scratchDirectory)
			if err == nil {
				err = removeErr
			} else {
				err = multierror.Append(err, removeErr)
			}
		}
	}()

	span := trace.SpanFromContext(ctx)
	logger := f.logger.With(zap.String("repository", repositoryURL), zap.String("path", internalPath))

	span.AddEvent("OpenExternalRepo")
	repo, err := f.provider.Open(ctx, repositoryURL, revision, scratchDirectory)
	if err != nil {
		if status.Code(err) == codes.FailedPrecondition {
			return util.StatusWrapf(err, "Cannot fetch from %#v", repositoryURL)
		}
		return util.StatusWrapf(err, "Failed to open repository %#v", repositoryURL)
	}

	// The scratch directory may reside on a file system on which
	// locks cannot be acquired.
	repo.SetState(repository.NoopState)

	span.AddEvent("Locate")
	artifact, err := repo.FindArtifact(ctx, internalPath)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return util.StatusWrapf(err, "Failed to look up %#v", internalPath)
		}
		if filepath.IsAbs(internalPath) {
			return status.Errorf(codes.NotFound, "Path %#v is not an output of repository %#v, and no copy from the working tree was attempted, as the path is absolute", internalPath, repositoryURL)
		}
		artifact = nil
	}
	if artifact == nil || !artifact.IsCached() {
		span.AddEvent("CopyFromWorkingTree")
		logger.Info("Copying from working tree", zap.String("output", output))
		return f.workingTreeCopier.Copy(repo.WorkingTreePath(), internalPath, output, repositoryURL)
	}

	span.AddEvent("PullAndCheckout")
	logger.Info("Pulling from cache", zap.String("fingerprint", artifact.Fingerprint()), zap.String("output", output))
	return f.pullAndCheckout(ctx, repo, artifact, output)
}

func (f *repositoryFetcher) pullAndCheckout(ctx context.Context, repo repository.Repository, artifact repository.Artifact, output string) (err error) {
	state := repo.State()
	if err := state.Lock(ctx); err != nil {
		return util.StatusWrap(err, "Failed to lock repository state")
	}
	defer func() {
		if unlockErr := state.Unlock(); unlockErr != nil {
			unlockErr = util.StatusWrap(unlockErr, "Failed to unlock repository state")
			if err == nil {
				err = unlockErr
			} else {
				err = multierror.Append(err, unlockErr)
			}
		}
	}()

	if err := repo.Pull(ctx, []repository.Artifact{artifact}); err != nil {
		return util.StatusWrapf(err, "Failed to pull %#v", artifact.RelativePath())
	}
	artifact.SetOutputPath(output)
	if err := artifact.Checkout(ctx, f.installer); err != nil {
		return util.StatusWrapf(err, "Failed to check out %#v", artifact.RelativePath())
	}
	return nil
}
