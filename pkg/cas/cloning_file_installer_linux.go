//go:build linux

package cas

import (
	"os"
	"path/filepath"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"

	"golang.org/x/sys/unix"
)

func cloneFile(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	oldLocalDirectory, ok := oldDirectory.(localPathProvider)
	if !ok {
		return unwrapDirectory(oldDirectory).Clonefile(oldName, unwrapDirectory(newDirectory), newName)
	}
	newLocalDirectory, ok := newDirectory.(localPathProvider)
	if !ok {
		return unwrapDirectory(oldDirectory).Clonefile(oldName, unwrapDirectory(newDirectory), newName)
	}
	oldPath := filepath.Join(oldLocalDirectory.LocalPath(), oldName.String())
	newPath := filepath.Join(newLocalDirectory.LocalPath(), newName.String())

	oldFD, err := unix.Open(oldPath, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: oldPath, Err: err}
	}
	defer unix.Close(oldFD)
	var stat unix.Stat_t
	if err := unix.Fstat(oldFD, &stat); err != nil {
		return &os.PathError{Op: "fstat", Path: oldPath, Err: err}
	}

	newFD, err := unix.Open(newPath, unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, stat.Mode&0o7777)
	if err != nil {
		return &os.PathError{Op: "open", Path: newPath, Err: err}
	}
	if err := unix.IoctlFileClone(newFD, oldFD); err != nil {
		unix.Close(newFD)
		unix.Unlink(newPath)
		return &os.PathError{Op: "ioctl FICLONE", Path: newPath, Err: err}
	}
	if err := unix.Close(newFD); err != nil {
		unix.Unlink(newPath)
		return &os.PathError{Op: "close", Path: newPath, Err: err}
	}
	return nil
}
