//go:build !linux

package cas

import (
	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
)

func cloneFile(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	return unwrapDirectory(oldDirectory).Clonefile(oldName, unwrapDirectory(newDirectory), newName)
}
