package fetch

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/karrick/godirwalk"
	"github.com/pkg/xattr"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// workingTreeCopier copies files and directories that are not stored in
// the cache from the working tree of a repository.
type workingTreeCopier struct {
	logger *zap.Logger
}

func wrapCopyError(err error, format string, args ...any) error {
	code := codes.Internal
	switch {
	case os.IsNotExist(err):
		code = codes.NotFound
	case os.IsExist(err):
		code = codes.AlreadyExists
	case os.IsPermission(err):
		code = codes.PermissionDenied
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}

// resolveSource determines the path of the file or directory in the
// working tree, with all symbolic links resolved. PermissionDenied is
// returned if it lies outside of the working tree.
func resolveSource(workingTreePath, internalPath, repositoryURL string) (string, error) {
	source := internalPath
	if !filepath.IsAbs(source) {
		source = filepath.Join(workingTreePath, source)
	}
	resolvedRoot, err := filepath.EvalSymlinks(workingTreePath)
	if err != nil {
		return "", wrapCopyError(err, "Failed to resolve working tree of repository %#v", repositoryURL)
	}
	resolvedSource, err := filepath.EvalSymlinks(source)
	if err != nil {
		if os.IsNotExist(err) {
			return "", status.Errorf(codes.NotFound, "Path %#v does not exist in repository %#v", internalPath, repositoryURL)
		}
		return "", wrapCopyError(err, "Failed to resolve path %#v in repository %#v", internalPath, repositoryURL)
	}
	relativePath, err := filepath.Rel(resolvedRoot, resolvedSource)
	if err != nil || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return "", status.Errorf(codes.PermissionDenied, "Path %#v resolves to a location outside of repository %#v", internalPath, repositoryURL)
	}
	return resolvedSource, nil
}

// Copy a file or directory from the working tree to an output path.
// Directories are copied recursively. Symbolic links contained in
// directories are copied as is. File modes, modification times and
// extended attributes are preserved where possible.
func (c *workingTreeCopier) Copy(workingTreePath, internalPath, output, repositoryURL string) error {
	source, err := resolveSource(workingTreePath, internalPath, repositoryURL)
	if err != nil {
		return err
	}
	fileInfo, err := os.Stat(source)
	if err != nil {
		return wrapCopyError(err, "Failed to inspect %#v", source)
	}
	if !fileInfo.IsDir() {
		return c.copyFile(source, output, fileInfo)
	}

	return godirwalk.Walk(source, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			relativePath, err := filepath.Rel(source, osPathname)
			if err != nil {
				return wrapCopyError(err, "Failed to make path %#v relative", osPathname)
			}
			target := filepath.Join(output, relativePath)
			switch {
			case de.IsDir():
				directoryInfo, err := os.Stat(osPathname)
				if err != nil {
					return wrapCopyError(err, "Failed to inspect %#v", osPathname)
				}
				if err := os.Mkdir(target, directoryInfo.Mode().Perm()|0o700); err != nil {
					return wrapCopyError(err, "Failed to create directory %#v", target)
				}
				c.copyExtendedAttributes(osPathname, target)
				return nil
			case de.IsSymlink():
				linkTarget, err := os.Readlink(osPathname)
				if err != nil {
					return wrapCopyError(err, "Failed to read symbolic link %#v", osPathname)
				}
				if err := os.Symlink(linkTarget, target); err != nil {
					return wrapCopyError(err, "Failed to create symbolic link %#v", target)
				}
				return nil
			case de.IsRegular():
				fileInfo, err := os.Lstat(osPathname)
				if err != nil {
					return wrapCopyError(err, "Failed to inspect %#v", osPathname)
				}
				return c.copyFile(osPathname, target, fileInfo)
			default:
				c.logger.Warn("Skipping special file", zap.String("path", osPathname))
				return nil
			}
		},
	})
}

func (c *workingTreeCopier) copyFile(source, target string, fileInfo os.FileInfo) error {
	r, err := os.Open(source)
	if err != nil {
		return wrapCopyError(err, "Failed to open %#v", source)
	}
	defer r.Close()

	w, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileInfo.Mode().Perm())
	if err != nil {
		return wrapCopyError(err, "Failed to create %#v", target)
	}
	_, err = io.Copy(w, r)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return wrapCopyError(err, "Failed to copy %#v to %#v", source, target)
	}

	// The file mode passed to OpenFile() is subject to the umask.
	if err := os.Chmod(target, fileInfo.Mode().Perm()); err != nil {
		return wrapCopyError(err, "Failed to set mode of %#v", target)
	}
	if err := os.Chtimes(target, fileInfo.ModTime(), fileInfo.ModTime()); err != nil {
		return wrapCopyError(err, "Failed to set modification time of %#v", target)
	}
	c.copyExtendedAttributes(source, target)
	return nil
}

// copyExtendedAttributes copies extended attributes on a best effort
// basis, as not all file systems support them.
func (c *workingTreeCopier) copyExtendedAttributes(source, target string) {
	names, err := xattr.LList(source)
	if err != nil {
		c.logger.Debug("Cannot list extended attributes", zap.String("path", source), zap.Error(err))
		return
	}
	for _, name := range names {
		value, err := xattr.LGet(source, name)
		if err == nil {
			err = xattr.LSet(target, name, value)
		}
		if err != nil {
			c.logger.Debug("Cannot copy extended attribute", zap.String("path", source), zap.String("name", name), zap.Error(err))
		}
	}
}
