package cas

import (
	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
)

type hardlinkingFileInstaller struct{}

// HardlinkingFileInstaller provides file copies through the use of
// link(2). Both names refer to the same inode afterwards, meaning that
// the original file must not be modified in place. This requires both
// directories to reside on the same file system.
var HardlinkingFileInstaller FileInstaller = hardlinkingFileInstaller{}

func (h hardlinkingFileInstaller) Link(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	return unwrapDirectory(oldDirectory).Link(oldName, unwrapDirectory(newDirectory), newName)
}
