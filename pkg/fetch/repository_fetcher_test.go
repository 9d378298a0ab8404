package fetch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildbarn/bb-fetch/internal/mock"
	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/fetch"
	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	repositoryURL = "https://github.com/example/dataset-registry"
	scratchUUID   = "36ebab65-3c4f-4faf-818b-2eabb4cd1b02"
)

type fetcherTestEnvironment struct {
	provider         *mock.MockProvider
	repo             *mock.MockRepository
	installer        *mock.MockFileInstaller
	fetcher          fetch.Fetcher
	destination      string
	scratchDirectory string
	workingTreePath  string
}

func newFetcherTestEnvironment(ctrl *gomock.Controller, t *testing.T) *fetcherTestEnvironment {
	provider := mock.NewMockProvider(ctrl)
	uuidGenerator := mock.NewMockUUIDGenerator(ctrl)
	uuidGenerator.EXPECT().Call().Return(uuid.MustParse(scratchUUID), nil).AnyTimes()
	installer := mock.NewMockFileInstaller(ctrl)
	destination := t.TempDir()
	scratchDirectory := filepath.Join(destination, "."+scratchUUID)
	return &fetcherTestEnvironment{
		provider:         provider,
		repo:             mock.NewMockRepository(ctrl),
		installer:        installer,
		fetcher:          fetch.NewRepositoryFetcher(provider, uuidGenerator.Call, installer, zap.NewNop()),
		destination:      destination,
		scratchDirectory: scratchDirectory,
		workingTreePath:  filepath.Join(scratchDirectory, "repository"),
	}
}

// expectOpen lets the Provider create a working tree containing a set
// of files inside the scratch directory.
func (e *fetcherTestEnvironment) expectOpen(ctx context.Context, t *testing.T, revision string, files map[string]string) {
	e.provider.EXPECT().Open(ctx, repositoryURL, revision, e.scratchDirectory).DoAndReturn(
		func(ctx context.Context, url, revision, scratchDirectory string) (repository.Repository, error) {
			require.NoError(t, os.Mkdir(e.workingTreePath, 0o777))
			for name, contents := range files {
				p := filepath.Join(e.workingTreePath, filepath.FromSlash(name))
				require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o777))
				require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
			}
			return e.repo, nil
		})
	e.repo.EXPECT().SetState(repository.NoopState)
	e.repo.EXPECT().WorkingTreePath().Return(e.workingTreePath).AnyTimes()
}

func (e *fetcherTestEnvironment) requireScratchDirectoryRemoved(t *testing.T) {
	_, err := os.Stat(e.scratchDirectory)
	require.True(t, os.IsNotExist(err))
}

func TestRepositoryFetcherPullAndCheckout(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	e := newFetcherTestEnvironment(ctrl, t)
	output := filepath.Join(e.destination, "data.xml")

	e.expectOpen(ctx, t, "v1.0", nil)
	artifact := mock.NewMockArtifact(ctrl)
	e.repo.EXPECT().FindArtifact(ctx, "data/data.xml").Return(artifact, nil)
	artifact.EXPECT().IsCached().Return(true).AnyTimes()
	artifact.EXPECT().Fingerprint().Return("8b1a9953c4611296a827abf8c47804d7").AnyTimes()
	artifact.EXPECT().RelativePath().Return("data/data.xml").AnyTimes()
	state := mock.NewMockState(ctrl)
	e.repo.EXPECT().State().Return(state)
	gomock.InOrder(
		state.EXPECT().Lock(ctx),
		e.repo.EXPECT().Pull(ctx, []repository.Artifact{artifact}),
		artifact.EXPECT().SetOutputPath(output),
		artifact.EXPECT().Checkout(ctx, e.installer).DoAndReturn(func(ctx context.Context, installer cas.FileInstaller) error {
			return os.WriteFile(output, []byte("Hello"), 0o444)
		}),
		state.EXPECT().Unlock())

	require.NoError(t, e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, "v1.0"))
	contents, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), contents)
	e.requireScratchDirectoryRemoved(t)
}

func TestRepositoryFetcherPullFailure(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	e := newFetcherTestEnvironment(ctrl, t)

	e.expectOpen(ctx, t, "", nil)
	artifact := mock.NewMockArtifact(ctrl)
	e.repo.EXPECT().FindArtifact(ctx, "data/data.xml").Return(artifact, nil)
	artifact.EXPECT().IsCached().Return(true).AnyTimes()
	artifact.EXPECT().Fingerprint().Return("8b1a9953c4611296a827abf8c47804d7").AnyTimes()
	artifact.EXPECT().RelativePath().Return("data/data.xml").AnyTimes()
	state := mock.NewMockState(ctrl)
	e.repo.EXPECT().State().Return(state)
	gomock.InOrder(
		state.EXPECT().Lock(ctx),
		e.repo.EXPECT().Pull(ctx, []repository.Artifact{artifact}).
			Return(status.Error(codes.Unavailable, "Server not reachable")),
		state.EXPECT().Unlock())

	// The lock should be released, and the scratch directory
	// should be removed, even if pulling fails.
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.Unavailable, "Failed to pull \"data/data.xml\": Server not reachable"),
		e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
	e.requireScratchDirectoryRemoved(t)
	_, err := os.Stat(filepath.Join(e.destination, "data.xml"))
	require.True(t, os.IsNotExist(err))
}

func TestRepositoryFetcherCopyFromWorkingTree(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("NotAnOutput", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.expectOpen(ctx, t, "", map[string]string{"README.md": "Hello"})
		e.repo.EXPECT().FindArtifact(ctx, "README.md").
			Return(nil, status.Error(codes.NotFound, "Path \"README.md\" is not an output"))

		require.NoError(t, e.fetcher.Fetch(ctx, repositoryURL, "README.md", e.destination, ""))
		contents, err := os.ReadFile(filepath.Join(e.destination, "README.md"))
		require.NoError(t, err)
		require.Equal(t, []byte("Hello"), contents)
		fileInfo, err := os.Stat(filepath.Join(e.destination, "README.md"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o644), fileInfo.Mode().Perm())
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("UncachedOutput", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.expectOpen(ctx, t, "", map[string]string{"metrics.json": "{}"})
		artifact := mock.NewMockArtifact(ctrl)
		e.repo.EXPECT().FindArtifact(ctx, "metrics.json").Return(artifact, nil)
		artifact.EXPECT().IsCached().Return(false)

		require.NoError(t, e.fetcher.Fetch(ctx, repositoryURL, "metrics.json", e.destination, ""))
		contents, err := os.ReadFile(filepath.Join(e.destination, "metrics.json"))
		require.NoError(t, err)
		require.Equal(t, []byte("{}"), contents)
	})

	t.Run("Directory", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.repo.EXPECT().FindArtifact(ctx, "src").
			Return(nil, status.Error(codes.NotFound, "Path \"src\" is not an output"))
		e.expectOpen(ctx, t, "", map[string]string{
			"src/main.go":          "package main",
			"src/internal/util.go": "package internal",
		})
		output := filepath.Join(e.destination, "src")

		require.NoError(t, e.fetcher.Fetch(ctx, repositoryURL, "src", e.destination, ""))
		contents, err := os.ReadFile(filepath.Join(output, "main.go"))
		require.NoError(t, err)
		require.Equal(t, []byte("package main"), contents)
		contents, err = os.ReadFile(filepath.Join(output, "internal", "util.go"))
		require.NoError(t, err)
		require.Equal(t, []byte("package internal"), contents)
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("Missing", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.expectOpen(ctx, t, "", nil)
		e.repo.EXPECT().FindArtifact(ctx, "nonexistent.txt").
			Return(nil, status.Error(codes.NotFound, "Path \"nonexistent.txt\" is not an output"))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.NotFound, "Path \"nonexistent.txt\" does not exist in repository %#v", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "nonexistent.txt", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("PathOutsideRepository", func(t *testing.T) {
		// Symbolic links in the working tree may not be used to
		// copy files from elsewhere on the system.
		e := newFetcherTestEnvironment(ctrl, t)
		secret := filepath.Join(t.TempDir(), "secret")
		require.NoError(t, os.WriteFile(secret, []byte("Secret"), 0o600))
		e.provider.EXPECT().Open(ctx, repositoryURL, "", e.scratchDirectory).DoAndReturn(
			func(ctx context.Context, url, revision, scratchDirectory string) (repository.Repository, error) {
				require.NoError(t, os.Mkdir(e.workingTreePath, 0o777))
				require.NoError(t, os.Symlink(secret, filepath.Join(e.workingTreePath, "escape")))
				return e.repo, nil
			})
		e.repo.EXPECT().SetState(repository.NoopState)
		e.repo.EXPECT().WorkingTreePath().Return(e.workingTreePath).AnyTimes()
		e.repo.EXPECT().FindArtifact(ctx, "escape").
			Return(nil, status.Error(codes.NotFound, "Path \"escape\" is not an output"))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.PermissionDenied, "Path \"escape\" resolves to a location outside of repository %#v", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "escape", e.destination, ""))
		_, err := os.Lstat(filepath.Join(e.destination, "escape"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("AbsolutePath", func(t *testing.T) {
		// Absolute paths that are not outputs should not cause
		// arbitrary files to be copied.
		e := newFetcherTestEnvironment(ctrl, t)
		e.expectOpen(ctx, t, "", nil)
		e.repo.EXPECT().FindArtifact(ctx, "/etc/passwd").
			Return(nil, status.Error(codes.NotFound, "Path \"/etc/passwd\" is not an output"))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.NotFound, "Path \"/etc/passwd\" is not an output of repository %#v, and no copy from the working tree was attempted, as the path is absolute", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "/etc/passwd", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})
}

func TestRepositoryFetcherFailures(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("OutputExists", func(t *testing.T) {
		// The output should be validated before the repository
		// is cloned.
		e := newFetcherTestEnvironment(ctrl, t)
		require.NoError(t, os.WriteFile(filepath.Join(e.destination, "data.xml"), nil, 0o666))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.AlreadyExists, "Output %#v already exists", filepath.Join(e.destination, "data.xml")),
			e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("NotARepository", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.provider.EXPECT().Open(ctx, repositoryURL, "", e.scratchDirectory).
			Return(nil, status.Error(codes.FailedPrecondition, "URL does not refer to a repository"))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.FailedPrecondition, "Cannot fetch from %#v: URL does not refer to a repository", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("CloneFailure", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.provider.EXPECT().Open(ctx, repositoryURL, "", e.scratchDirectory).
			Return(nil, status.Error(codes.Unavailable, "Could not resolve host"))

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.Unavailable, "Failed to open repository %#v: Could not resolve host", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("LookupFailure", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		e.expectOpen(ctx, t, "", nil)
		e.repo.EXPECT().FindArtifact(ctx, "data/data.xml").
			Return(nil, status.Error(codes.DataLoss, "Stage file is corrupted"))

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.DataLoss, "Failed to look up \"data/data.xml\": Stage file is corrupted"),
			e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})
}

func TestRepositoryFetcherCancellation(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("OpenDeadlineExceeded", func(t *testing.T) {
		// A clone that was interrupted halfway should still have
		// its partial results removed.
		e := newFetcherTestEnvironment(ctrl, t)
		e.provider.EXPECT().Open(ctx, repositoryURL, "", e.scratchDirectory).DoAndReturn(
			func(ctx context.Context, url, revision, scratchDirectory string) (repository.Repository, error) {
				require.NoError(t, os.MkdirAll(filepath.Join(e.workingTreePath, ".git", "objects"), 0o777))
				require.NoError(t, os.WriteFile(filepath.Join(e.workingTreePath, ".git", "objects", "pack"), []byte("Partial"), 0o444))
				return nil, status.Error(codes.DeadlineExceeded, "context deadline exceeded")
			})

		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.DeadlineExceeded, "Failed to open repository %#v: context deadline exceeded", repositoryURL),
			e.fetcher.Fetch(ctx, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
	})

	t.Run("PullCanceled", func(t *testing.T) {
		e := newFetcherTestEnvironment(ctrl, t)
		ctxWithCancel, cancel := context.WithCancel(ctx)
		defer cancel()

		e.expectOpen(ctxWithCancel, t, "", map[string]string{"data/data.xml.dvc": "outs:\n"})
		artifact := mock.NewMockArtifact(ctrl)
		e.repo.EXPECT().FindArtifact(ctxWithCancel, "data/data.xml").Return(artifact, nil)
		artifact.EXPECT().IsCached().Return(true).AnyTimes()
		artifact.EXPECT().Fingerprint().Return("8b1a9953c4611296a827abf8c47804d7").AnyTimes()
		artifact.EXPECT().RelativePath().Return("data/data.xml").AnyTimes()
		state := mock.NewMockState(ctrl)
		e.repo.EXPECT().State().Return(state)
		gomock.InOrder(
			state.EXPECT().Lock(ctxWithCancel),
			e.repo.EXPECT().Pull(ctxWithCancel, []repository.Artifact{artifact}).DoAndReturn(
				func(ctx context.Context, artifacts []repository.Artifact) error {
					cancel()
					return status.Error(codes.Canceled, "context canceled")
				}),
			state.EXPECT().Unlock())

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.Canceled, "Failed to pull \"data/data.xml\": context canceled"),
			e.fetcher.Fetch(ctxWithCancel, repositoryURL, "data/data.xml", e.destination, ""))
		e.requireScratchDirectoryRemoved(t)
		_, err := os.Stat(filepath.Join(e.destination, "data.xml"))
		require.True(t, os.IsNotExist(err))
	})
}
