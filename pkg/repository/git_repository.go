package repository

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-fetch/pkg/location"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/util"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DirectoryManifestEntry is a file that is part of a directory output.
// A list of them is stored in the cache under the fingerprint of the
// directory output.
type DirectoryManifestEntry struct {
	MD5          string `json:"md5"`
	RelativePath string `json:"relpath"`
}

type gitRepository struct {
	url             string
	workingTreePath string
	cache           *cas.LocalCache
	config          *config
	index           map[string]indexEntry
	remoteOpener    RemoteOpener
	logger          *zap.Logger

	stateLock sync.Mutex
	state     State
}

func newGitRepository(url, workingTreePath, cacheDirectoryPath string, config *config, index map[string]indexEntry, remoteOpener RemoteOpener, logger *zap.Logger) *gitRepository {
	return &gitRepository{
		url:             url,
		workingTreePath: workingTreePath,
		cache:           cas.NewLocalCache(cacheDirectoryPath),
		config:          config,
		index:           index,
		remoteOpener:    remoteOpener,
		logger:          logger,
		state:           NewLockFileState(filepath.Join(workingTreePath, controlDirectoryName, "tmp", "lock")),
	}
}

func (r *gitRepository) WorkingTreePath() string {
	return r.workingTreePath
}

func (r *gitRepository) State() State {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()
	return r.state
}

func (r *gitRepository) SetState(state State) {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()
	r.state = state
}

func (r *gitRepository) FindArtifact(ctx context.Context, p string) (Artifact, error) {
	relativePath := p
	if filepath.IsAbs(p) {
		var err error
		relativePath, err = filepath.Rel(r.workingTreePath, p)
		if err != nil || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
			return nil, status.Errorf(codes.NotFound, "Path %#v is not an output of repository %#v", p, r.url)
		}
	}
	relativePath = path.Clean(filepath.ToSlash(relativePath))
	entry, ok := r.index[relativePath]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Path %#v is not an output of repository %#v", p, r.url)
	}
	return &gitArtifact{
		repository: r,
		entry:      entry,
		outputPath: filepath.Join(r.workingTreePath, filepath.FromSlash(entry.relativePath)),
	}, nil
}

func (r *gitRepository) openDefaultRemote() (*remote.Remote, error) {
	url, err := r.config.getDefaultRemoteURL()
	if err != nil {
		return nil, util.StatusWrapf(err, "Cannot pull from repository %#v", r.url)
	}
	l, err := location.Parse(url)
	if err != nil {
		return nil, util.StatusWrapf(err, "Invalid remote of repository %#v", r.url)
	}
	return r.remoteOpener.NewRemoteFromLocation(l)
}

func (r *gitRepository) Pull(ctx context.Context, artifacts []Artifact) error {
	var fingerprints []string
	for _, artifact := range artifacts {
		if artifact.IsCached() {
			fingerprints = append(fingerprints, artifact.Fingerprint())
		}
	}
	if len(fingerprints) == 0 {
		return nil
	}
	rm, err := r.openDefaultRemote()
	if err != nil {
		return err
	}

	for _, fingerprint := range fingerprints {
		if err := r.pullFingerprint(ctx, rm, fingerprint); err != nil {
			return err
		}
		if cas.IsDirectoryFingerprint(fingerprint) {
			manifest, err := r.readDirectoryManifest(fingerprint)
			if err != nil {
				return err
			}
			for _, entry := range manifest {
				if err := r.pullFingerprint(ctx, rm, entry.MD5); err != nil {
					return util.StatusWrapf(err, "Failed to pull %#v of directory %#v", entry.RelativePath, fingerprint)
				}
			}
		}
	}
	return nil
}

func (r *gitRepository) pullFingerprint(ctx context.Context, rm *remote.Remote, fingerprint string) error {
	directoryName, fileName, err := cas.SplitFingerprint(fingerprint)
	if err != nil {
		return err
	}
	source := rm.Location().Child(directoryName, fileName)
	return r.cache.Fetch(ctx, fingerprint, func(ctx context.Context, localPath string) error {
		r.logger.Debug("Pulling cache entry", zap.String("fingerprint", fingerprint), zap.Stringer("source", source))
		if err := rm.Download(ctx, source, localPath, fingerprint, rm.ReportsProgress()); err != nil {
			return util.StatusWrapf(err, "Failed to pull %#v", fingerprint)
		}
		return nil
	})
}

func (r *gitRepository) readDirectoryManifest(fingerprint string) ([]DirectoryManifestEntry, error) {
	f, err := r.cache.Open(fingerprint)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.Internal, "Failed to read directory manifest %#v", fingerprint)
	}
	var manifest []DirectoryManifestEntry
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.DataLoss, "Invalid directory manifest %#v", fingerprint)
	}
	for _, entry := range manifest {
		if !isLocalRelativePath(entry.RelativePath) {
			return nil, status.Errorf(codes.DataLoss, "Directory manifest %#v contains invalid path %#v", fingerprint, entry.RelativePath)
		}
	}
	return manifest, nil
}

// isLocalRelativePath returns whether a slash separated path is
// relative and does not escape the directory it is resolved against.
func isLocalRelativePath(p string) bool {
	if p == "" || path.IsAbs(p) {
		return false
	}
	for _, component := range strings.Split(p, "/") {
		if component == "" || component == "." || component == ".." {
			return false
		}
	}
	return true
}

// ensureDirectory creates a directory and its parents, if they don't
// exist already.
func ensureDirectory(p string) error {
	if err := os.MkdirAll(p, 0o777); err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to create directory %#v", p)
	}
	return nil
}
