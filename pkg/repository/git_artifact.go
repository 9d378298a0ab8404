package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/buildbarn/bb-fetch/pkg/cas"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type gitArtifact struct {
	repository *gitRepository
	entry      indexEntry
	outputPath string
}

func (a *gitArtifact) RelativePath() string {
	return a.entry.relativePath
}

func (a *gitArtifact) IsCached() bool {
	return a.entry.cached
}

func (a *gitArtifact) Fingerprint() string {
	return a.entry.fingerprint
}

func (a *gitArtifact) SetOutputPath(outputPath string) {
	a.outputPath = outputPath
}

func (a *gitArtifact) Checkout(ctx context.Context, installer cas.FileInstaller) error {
	if !a.entry.cached {
		return status.Errorf(codes.FailedPrecondition, "Output %#v is not stored in the cache", a.entry.relativePath)
	}
	if !cas.IsDirectoryFingerprint(a.entry.fingerprint) {
		return a.installFile(a.entry.fingerprint, installer, a.outputPath)
	}

	manifest, err := a.repository.readDirectoryManifest(a.entry.fingerprint)
	if err != nil {
		return err
	}
	if err := ensureDirectory(a.outputPath); err != nil {
		return err
	}
	for _, entry := range manifest {
		if err := ctx.Err(); err != nil {
			return util.StatusFromContext(ctx)
		}
		if err := a.installFile(entry.MD5, installer, filepath.Join(a.outputPath, filepath.FromSlash(entry.RelativePath))); err != nil {
			return err
		}
	}
	a.repository.logger.Debug("Checked out directory", zap.String("output", a.outputPath), zap.Int("files", len(manifest)))
	return nil
}

// installFile installs a single file from the cache at a path.
func (a *gitArtifact) installFile(fingerprint string, installer cas.FileInstaller, outputPath string) error {
	parentPath, name := filepath.Dir(outputPath), filepath.Base(outputPath)
	if err := ensureDirectory(parentPath); err != nil {
		return err
	}
	component, ok := path.NewComponent(name)
	if !ok {
		return status.Errorf(codes.InvalidArgument, "Invalid output file name %#v", name)
	}
	parentDirectory, err := cas.NewLocalDirectory(parentPath)
	if err != nil {
		return util.StatusWrapfWithCode(err, codes.Internal, "Failed to open directory %#v", parentPath)
	}
	defer parentDirectory.Close()

	if err := a.repository.cache.Install(fingerprint, installer, parentDirectory, component); err != nil {
		if os.IsExist(err) || status.Code(err) == codes.AlreadyExists {
			return status.Errorf(codes.AlreadyExists, "Output %#v already exists", outputPath)
		}
		return util.StatusWrapf(err, "Failed to check out %#v", outputPath)
	}
	return nil
}
