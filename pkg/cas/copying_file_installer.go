package cas

import (
	"io"
	"math"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
)

type copyingFileInstaller struct{}

// CopyingFileInstaller provides file copies by reading the contents of
// the original file and writing them into a newly created file. Unlike
// other FileInstallers, this works on every file system and across file
// system boundaries.
var CopyingFileInstaller FileInstaller = copyingFileInstaller{}

func (h copyingFileInstaller) Link(oldDirectory filesystem.Directory, oldName path.Component, newDirectory filesystem.Directory, newName path.Component) error {
	r, err := oldDirectory.OpenRead(oldName)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := newDirectory.OpenAppend(newName, filesystem.CreateExcl(0o666))
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, io.NewSectionReader(r, 0, math.MaxInt64)); err != nil {
		w.Close()
		newDirectory.Remove(newName)
		return err
	}
	return w.Close()
}
