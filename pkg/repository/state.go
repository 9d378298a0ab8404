package repository

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type noopState struct{}

// NoopState is a State that does not guard anything. It can be used
// for repositories that are not shared with other processes, or that
// are stored on file systems on which locks cannot be acquired.
var NoopState State = noopState{}

func (noopState) Lock(ctx context.Context) error {
	return nil
}

func (noopState) Unlock() error {
	return nil
}

type lockFileState struct {
	path string
}

// NewLockFileState creates a State that is backed by a lock file. The
// lock is held for as long as the file exists. An attempt to lock it
// while it is held by another process fails immediately.
func NewLockFileState(path string) State {
	return &lockFileState{path: path}
}

func (s *lockFileState) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o777); err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to create directory for lock file %#v", s.path)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return status.Errorf(codes.Unavailable, "Lock file %#v is held by another process", s.path)
		}
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to create lock file %#v", s.path)
	}
	_, err = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(s.path)
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to write lock file %#v", s.path)
	}
	return nil
}

func (s *lockFileState) Unlock() error {
	if err := os.Remove(s.path); err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to remove lock file %#v", s.path)
	}
	return nil
}
