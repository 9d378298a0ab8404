package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/buildbarn/bb-fetch/pkg/repository"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLockFileState(t *testing.T) {
	ctx := context.Background()
	lockPath := filepath.Join(t.TempDir(), "tmp", "lock")
	state1 := repository.NewLockFileState(lockPath)
	state2 := repository.NewLockFileState(lockPath)

	// Locking should create the lock file and its parent
	// directory, storing the process ID.
	require.NoError(t, state1.Lock(ctx))
	contents, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(contents))

	// Other users of the same lock file should not be able to
	// acquire it in the meantime.
	err = state2.Lock(ctx)
	require.Equal(t, codes.Unavailable, status.Code(err))

	require.NoError(t, state1.Unlock())
	_, err = os.Stat(lockPath)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, state2.Lock(ctx))
	require.NoError(t, state2.Unlock())

	// Unlocking a lock that is not held is an error.
	require.Equal(t, codes.Internal, status.Code(state2.Unlock()))
}

func TestNoopState(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, repository.NoopState.Lock(ctx))
	require.NoError(t, repository.NoopState.Lock(ctx))
	require.NoError(t, repository.NoopState.Unlock())
}

func TestIsStageFileName(t *testing.T) {
	require.True(t, repository.IsStageFileName("Dvcfile"))
	require.True(t, repository.IsStageFileName("data.txt.dvc"))
	require.False(t, repository.IsStageFileName("data.txt"))
	require.False(t, repository.IsStageFileName("dvcfile"))
}
