package cas

import (
	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
)

type cloningFileInstaller struct{}

// CloningFileInstaller provides file copies through the use of
// copy-on-write clones. Clones are new inodes that look like complete
// copies, except that the underlying data is shared until either side
// is modified. Only file systems such as APFS, Btrfs and XFS support
// this.
//
// On Linux, the FICLONE ioctl is used. This requires both directories
// to be LocalDirectory instances. On other platforms, and for other
// directories, cloning is delegated to filesystem.Directory, which
// only supports it on Darwin.
var CloningFileInstaller FileInstaller = cloningFileInstaller{}

func (h cloningFileInstaller) Link(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	return cloneFile(oldDirectory, oldName, newDirectory, newName)
}
