package cas

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DirectorySuffix is appended to the fingerprint of a directory
// manifest, distinguishing it from the fingerprint of a regular file.
const DirectorySuffix = ".dir"

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{32}(\.dir)?$`)

// SplitFingerprint splits a fingerprint into the name of the directory
// and the name of the file under which it is stored in a cache. The
// first two characters are used as the directory name, so that
// directories don't grow excessively large.
func SplitFingerprint(fingerprint string) (string, string, error) {
	if !fingerprintPattern.MatchString(fingerprint) {
		return "", "", status.Errorf(codes.InvalidArgument, "Invalid fingerprint %#v", fingerprint)
	}
	return fingerprint[:2], fingerprint[2:], nil
}

// IsDirectoryFingerprint returns true if a fingerprint refers to a
// directory manifest.
func IsDirectoryFingerprint(fingerprint string) bool {
	return strings.HasSuffix(fingerprint, DirectorySuffix)
}

// FetchFunc writes the contents belonging to a fingerprint to a path.
type FetchFunc func(ctx context.Context, localPath string) error

// LocalCache is a content addressable cache of files stored on the
// local file system, keyed by the MD5 checksum of their contents.
// Files in the cache are read-only, so that they may safely be
// hardlinked to other locations.
type LocalCache struct {
	directoryPath string

	downloadsLock sync.Mutex
	downloads     map[string]<-chan struct{}
}

// NewLocalCache creates a LocalCache that stores files underneath a
// given directory. The directory is created on demand.
func NewLocalCache(directoryPath string) *LocalCache {
	return &LocalCache{
		directoryPath: directoryPath,
		downloads:     map[string]<-chan struct{}{},
	}
}

// Path returns the location at which the contents belonging to a
// fingerprint are stored.
func (c *LocalCache) Path(fingerprint string) (string, error) {
	directoryName, fileName, err := SplitFingerprint(fingerprint)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.directoryPath, directoryName, fileName), nil
}

// Contains returns whether the contents belonging to a fingerprint are
// present in the cache.
func (c *LocalCache) Contains(fingerprint string) (bool, error) {
	p, err := c.Path(fingerprint)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, util.StatusWrapfWithCode(err, codes.Internal, "Failed to inspect cached file %#v", fingerprint)
	}
	return true, nil
}

// Fetch ensures that the contents belonging to a fingerprint are
// present in the cache, calling a FetchFunc to obtain them if needed.
// Concurrent calls for the same fingerprint are coalesced. Contents of
// regular files are only added to the cache if their checksum matches
// the fingerprint.
func (c *LocalCache) Fetch(ctx context.Context, fingerprint string, fetch FetchFunc) error {
	for {
		if ok, err := c.Contains(fingerprint); err != nil || ok {
			return err
		}

		// A download is required. Let's see if one is already in progress.
		c.downloadsLock.Lock()
		wait, ok := c.downloads[fingerprint]
		if !ok {
			break
		}
		c.downloadsLock.Unlock()
		select {
		case <-wait:
			// Download finished. Loop back to check the cache
			// again. If it failed, we'll attempt a new download.
		case <-ctx.Done():
			return util.StatusFromContext(ctx)
		}
	}
	newWait := make(chan struct{})
	c.downloads[fingerprint] = newWait
	c.downloadsLock.Unlock()

	defer func() {
		c.downloadsLock.Lock()
		delete(c.downloads, fingerprint)
		c.downloadsLock.Unlock()
		close(newWait)
	}()

	// Check the cache again in case another download completed
	// between our initial check and acquiring the download lock.
	if ok, err := c.Contains(fingerprint); err != nil || ok {
		return err
	}

	p, err := c.Path(fingerprint)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o777); err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to create cache directory for %#v", fingerprint)
	}
	temporaryPath := p + ".tmp"
	if err := fetch(ctx, temporaryPath); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if !IsDirectoryFingerprint(fingerprint) {
		if err := verifyChecksum(temporaryPath, fingerprint); err != nil {
			os.Remove(temporaryPath)
			return err
		}
	}
	if err := os.Chmod(temporaryPath, 0o444); err != nil {
		os.Remove(temporaryPath)
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to make cached file %#v read-only", fingerprint)
	}
	if err := os.Rename(temporaryPath, p); err != nil {
		os.Remove(temporaryPath)
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to add cached file %#v", fingerprint)
	}
	return nil
}

func verifyChecksum(p, fingerprint string) error {
	f, err := os.Open(p)
	if err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to open downloaded file for %#v", fingerprint)
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to compute checksum of downloaded file for %#v", fingerprint)
	}
	if checksum := hex.EncodeToString(hasher.Sum(nil)); checksum != fingerprint {
		return status.Errorf(codes.DataLoss, "Downloaded file for %#v has checksum %#v", fingerprint, checksum)
	}
	return nil
}

// Open returns a reader of the contents belonging to a fingerprint.
func (c *LocalCache) Open(fingerprint string) (io.ReadCloser, error) {
	p, err := c.Path(fingerprint)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.Errorf(codes.NotFound, "Fingerprint %#v is not present in the cache", fingerprint)
		}
		return nil, util.StatusWrapfWithCode(err, codes.Internal, "Failed to open cached file %#v", fingerprint)
	}
	return f, nil
}

// Install the contents belonging to a fingerprint at a location
// outside the cache, using a FileInstaller.
func (c *LocalCache) Install(fingerprint string, installer FileInstaller, newDirectory filesystem.Directory, newName path.Component) error {
	directoryName, fileName, err := SplitFingerprint(fingerprint)
	if err != nil {
		return err
	}
	cacheDirectory, err := NewLocalDirectory(filepath.Join(c.directoryPath, directoryName))
	if err != nil {
		if os.IsNotExist(err) {
			return status.Errorf(codes.NotFound, "Fingerprint %#v is not present in the cache", fingerprint)
		}
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to open cache directory for %#v", fingerprint)
	}
	defer cacheDirectory.Close()

	if err := installer.Link(cacheDirectory, path.MustNewComponent(fileName), newDirectory, newName); err != nil {
		return wrapLinkError(err, "Failed to install cached file %#v", fingerprint)
	}
	return nil
}
