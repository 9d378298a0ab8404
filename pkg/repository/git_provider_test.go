package repository_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildbarn/bb-fetch/internal/mock"
	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-fetch/pkg/remote/memory"
	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	helloFingerprint   = "8b1a9953c4611296a827abf8c47804d7"
	goodbyeFingerprint = "6fc422233a40a75a1f028e11c3cd1140"
	imagesFingerprint  = "0123456789abcdef0123456789abcdef.dir"
)

func requireGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("Git is not installed")
	}
}

func runGit(t *testing.T, directory string, args ...string) string {
	cmd := exec.Command("git", append([]string{"-c", "user.name=Test", "-c", "user.email=test@example.com"}, args...)...)
	cmd.Dir = directory
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return strings.TrimSpace(string(output))
}

func writeFiles(t *testing.T, directory string, files map[string]string) {
	for name, contents := range files {
		p := filepath.Join(directory, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o777))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o666))
	}
}

// createRepository creates a Git repository that tracks a couple of
// outputs, returning its path.
func createRepository(t *testing.T) string {
	repositoryPath := filepath.Join(t.TempDir(), "source")
	require.NoError(t, os.Mkdir(repositoryPath, 0o777))
	runGit(t, repositoryPath, "init", "--quiet")
	writeFiles(t, repositoryPath, map[string]string{
		".dvc/config": "[core]\n    remote = storage\n['remote \"storage\"']\n    url = memory://store/cache\n",
		"data.txt.dvc": "outs:\n- md5: " + helloFingerprint + "\n  path: data.txt\n",
		"models/Dvcfile": "outs:\n- md5: " + imagesFingerprint + "\n  path: images\n" +
			"- md5: " + goodbyeFingerprint + "\n  path: ../../outside.txt\n" +
			"- md5: " + goodbyeFingerprint + "\n  path: /absolute.txt\n",
		"metrics.json.dvc": "outs:\n- md5: " + goodbyeFingerprint + "\n  path: metrics.json\n  cache: false\n",
		"metrics.json":     "{}\n",
		"README":           "Hello\n",
	})
	runGit(t, repositoryPath, "add", "--all")
	runGit(t, repositoryPath, "commit", "--quiet", "-m", "Initial commit")
	return repositoryPath
}

// newStorage creates a remote that contains the cache entries of the
// outputs of the repository created by createRepository().
func newStorage(t *testing.T) *remote.Remote {
	ctx := context.Background()
	r := remote.NewRemote(location.MustParse("memory://store/cache"), memory.NewClient("store"), "store", nil, 4)
	localPath := t.TempDir()
	writeFiles(t, localPath, map[string]string{
		"hello":   "Hello",
		"goodbye": "Goodbye",
		"images":  `[{"md5": "` + helloFingerprint + `", "relpath": "hello.txt"}, {"md5": "` + goodbyeFingerprint + `", "relpath": "sub/goodbye.txt"}]`,
	})
	for name, fingerprint := range map[string]string{
		"hello":   helloFingerprint,
		"goodbye": goodbyeFingerprint,
		"images":  imagesFingerprint,
	} {
		directoryName, fileName, err := cas.SplitFingerprint(fingerprint)
		require.NoError(t, err)
		require.NoError(t, r.Upload(ctx, filepath.Join(localPath, name), r.Location().Child(directoryName, fileName), name, false))
	}
	return r
}

func TestGitProviderOpenFailure(t *testing.T) {
	requireGit(t)
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	provider := repository.NewGitProvider("git", mock.NewMockRemoteOpener(ctrl), zap.NewNop())

	t.Run("NonexistentRepository", func(t *testing.T) {
		url := filepath.Join(t.TempDir(), "nonexistent")
		_, err := provider.Open(ctx, url, "", t.TempDir())
		require.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("NoControlDirectory", func(t *testing.T) {
		url := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.Mkdir(url, 0o777))
		runGit(t, url, "init", "--quiet")
		writeFiles(t, url, map[string]string{"README": "Hello\n"})
		runGit(t, url, "add", "--all")
		runGit(t, url, "commit", "--quiet", "-m", "Initial commit")

		_, err := provider.Open(ctx, url, "", t.TempDir())
		testutil.RequireEqualStatus(t, status.Errorf(codes.FailedPrecondition, "URL %#v does not refer to a repository: no .dvc directory present", url), err)
	})

	t.Run("NonexistentRevision", func(t *testing.T) {
		url := createRepository(t)
		_, err := provider.Open(ctx, url, "nonexistent", t.TempDir())
		require.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("Canceled", func(t *testing.T) {
		url := createRepository(t)
		canceledCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.Open(canceledCtx, url, "", t.TempDir())
		require.Equal(t, codes.Canceled, status.Code(err))
	})
}

func TestGitProviderArtifacts(t *testing.T) {
	requireGit(t)
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	remoteOpener := mock.NewMockRemoteOpener(ctrl)
	provider := repository.NewGitProvider("git", remoteOpener, zap.NewNop())

	url := createRepository(t)
	scratchDirectory := t.TempDir()
	repo, err := provider.Open(ctx, url, "", scratchDirectory)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(scratchDirectory, "repository"), repo.WorkingTreePath())

	t.Run("CachedFile", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, "data.txt")
		require.NoError(t, err)
		require.Equal(t, "data.txt", artifact.RelativePath())
		require.True(t, artifact.IsCached())
		require.Equal(t, helloFingerprint, artifact.Fingerprint())
	})

	t.Run("CachedDirectory", func(t *testing.T) {
		// Outputs are relative to the directory containing the
		// stage file. Trailing slashes should be ignored.
		artifact, err := repo.FindArtifact(ctx, "models/images/")
		require.NoError(t, err)
		require.Equal(t, "models/images", artifact.RelativePath())
		require.Equal(t, imagesFingerprint, artifact.Fingerprint())
	})

	t.Run("UncachedFile", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, "metrics.json")
		require.NoError(t, err)
		require.False(t, artifact.IsCached())
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.FailedPrecondition, "Output \"metrics.json\" is not stored in the cache"),
			artifact.Checkout(ctx, cas.CopyingFileInstaller))
	})

	t.Run("AbsolutePathInWorkingTree", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, filepath.Join(repo.WorkingTreePath(), "data.txt"))
		require.NoError(t, err)
		require.Equal(t, "data.txt", artifact.RelativePath())
	})

	t.Run("NotAnOutput", func(t *testing.T) {
		for _, p := range []string{"README", "outside.txt", "../outside.txt", "/absolute.txt", "nonexistent"} {
			_, err := repo.FindArtifact(ctx, p)
			testutil.RequireEqualStatus(t, status.Errorf(codes.NotFound, "Path %#v is not an output of repository %#v", p, url), err)
		}
	})

	t.Run("State", func(t *testing.T) {
		// By default, the lock file in the control directory
		// is used.
		state := repo.State()
		require.NoError(t, state.Lock(ctx))
		_, err := os.Stat(filepath.Join(repo.WorkingTreePath(), ".dvc", "tmp", "lock"))
		require.NoError(t, err)
		require.NoError(t, state.Unlock())

		repo.SetState(repository.NoopState)
		require.Equal(t, repository.NoopState, repo.State())
	})
}

func TestGitProviderPullAndCheckout(t *testing.T) {
	requireGit(t)
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	remoteOpener := mock.NewMockRemoteOpener(ctrl)
	provider := repository.NewGitProvider("git", remoteOpener, zap.NewNop())

	url := createRepository(t)
	repo, err := provider.Open(ctx, url, "", t.TempDir())
	require.NoError(t, err)
	storage := newStorage(t)
	outputDirectory := t.TempDir()

	t.Run("File", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, "data.txt")
		require.NoError(t, err)

		remoteOpener.EXPECT().NewRemoteFromLocation(location.MustParse("memory://store/cache")).Return(storage, nil)
		require.NoError(t, repo.Pull(ctx, []repository.Artifact{artifact}))

		output := filepath.Join(outputDirectory, "data.txt")
		artifact.SetOutputPath(output)
		require.NoError(t, artifact.Checkout(ctx, cas.CopyingFileInstaller))
		contents, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, []byte("Hello"), contents)

		// Checking out over an existing file is not permitted.
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.AlreadyExists, "Output %#v already exists", output),
			artifact.Checkout(ctx, cas.CopyingFileInstaller))
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.AlreadyExists, "Output %#v already exists", output),
			artifact.Checkout(ctx, cas.NewFallbackFileInstaller(cas.NewLinkTypeInstallers(cas.DefaultLinkTypes))))
	})

	t.Run("ExistingFileIsPreserved", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, "data.txt")
		require.NoError(t, err)

		// The cache entry was already pulled by the previous
		// test, meaning no remote needs to be opened.
		output := filepath.Join(outputDirectory, "user.txt")
		require.NoError(t, os.WriteFile(output, []byte("User data"), 0o666))
		artifact.SetOutputPath(output)
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.AlreadyExists, "Output %#v already exists", output),
			artifact.Checkout(ctx, cas.NewFallbackFileInstaller(cas.NewLinkTypeInstallers(cas.DefaultLinkTypes))))
		contents, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, []byte("User data"), contents)
	})

	t.Run("Directory", func(t *testing.T) {
		artifact, err := repo.FindArtifact(ctx, "models/images")
		require.NoError(t, err)

		remoteOpener.EXPECT().NewRemoteFromLocation(location.MustParse("memory://store/cache")).Return(storage, nil)
		require.NoError(t, repo.Pull(ctx, []repository.Artifact{artifact}))

		output := filepath.Join(outputDirectory, "images")
		artifact.SetOutputPath(output)
		require.NoError(t, artifact.Checkout(ctx, cas.NewFallbackFileInstaller(cas.NewLinkTypeInstallers(cas.DefaultLinkTypes))))
		contents, err := os.ReadFile(filepath.Join(output, "hello.txt"))
		require.NoError(t, err)
		require.Equal(t, []byte("Hello"), contents)
		contents, err = os.ReadFile(filepath.Join(output, "sub", "goodbye.txt"))
		require.NoError(t, err)
		require.Equal(t, []byte("Goodbye"), contents)
	})

	t.Run("UncachedArtifactsAreSkipped", func(t *testing.T) {
		// No remote needs to be opened if none of the
		// artifacts are stored in the cache.
		artifact, err := repo.FindArtifact(ctx, "metrics.json")
		require.NoError(t, err)
		require.NoError(t, repo.Pull(ctx, []repository.Artifact{artifact}))
	})

	t.Run("RemoteFailure", func(t *testing.T) {
		repo, err := provider.Open(ctx, url, "HEAD", t.TempDir())
		require.NoError(t, err)
		artifact, err := repo.FindArtifact(ctx, "data.txt")
		require.NoError(t, err)

		remoteOpener.EXPECT().NewRemoteFromLocation(location.MustParse("memory://store/cache")).
			Return(remote.NewRemote(location.MustParse("memory://store/cache"), memory.NewClient("store"), "store", nil, 4), nil)
		err = repo.Pull(ctx, []repository.Artifact{artifact})
		require.Equal(t, codes.NotFound, status.Code(err))
	})
}
