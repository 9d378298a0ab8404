package cas

import (
	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
)

// LocalDirectory is a directory on the local file system that also
// keeps track of its path. This permits FileInstallers to perform
// operations that filesystem.Directory does not provide, such as
// cloning files on Linux.
type LocalDirectory struct {
	filesystem.DirectoryCloser
	localPath string
}

// NewLocalDirectory opens a directory on the local file system.
func NewLocalDirectory(localPath string) (*LocalDirectory, error) {
	d, err := filesystem.NewLocalDirectory(path.LocalFormat.NewParser(localPath))
	if err != nil {
		return nil, err
	}
	return &LocalDirectory{
		DirectoryCloser: d,
		localPath:       localPath,
	}, nil
}

// LocalPath returns the path of the directory that was provided to
// NewLocalDirectory().
func (d *LocalDirectory) LocalPath() string {
	return d.localPath
}

type localPathProvider interface {
	LocalPath() string
}

// unwrapDirectory returns the filesystem.Directory underneath a
// LocalDirectory. Operations such as Link() and Clonefile() require
// the target directory to be of the same type as the source.
func unwrapDirectory(d filesystem.Directory) filesystem.Directory {
	if ld, ok := d.(*LocalDirectory); ok {
		return ld.DirectoryCloser
	}
	return d
}
