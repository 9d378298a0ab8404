package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Transferer copies single files between the local file system and a
// remote store, using a PathResolver to translate remote paths to IDs.
type Transferer struct {
	client           Client
	resolver         *PathResolver
	progressReporter ProgressReporter
}

// NewTransferer creates a Transferer. The ProgressReporter is only
// used for transfers that request progress reporting. It may be nil,
// in which case no progress is reported at all.
func NewTransferer(client Client, resolver *PathResolver, progressReporter ProgressReporter) *Transferer {
	return &Transferer{
		client:           client,
		resolver:         resolver,
		progressReporter: progressReporter,
	}
}

func wrapLocalError(err error, format string, args ...any) error {
	code := codes.Internal
	if os.IsNotExist(err) {
		code = codes.NotFound
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}

// Upload a local file to a path in the remote store. Folders leading up
// to the destination are created if needed. A new file item is always
// created, even if one with the same name already exists.
//
// If streaming the contents fails, the newly created item is left
// behind with partial contents.
func (t *Transferer) Upload(ctx context.Context, localSource string, destination []string, displayName string, reportProgress bool) error {
	if len(destination) == 0 {
		return status.Error(codes.InvalidArgument, "Cannot upload to the root folder")
	}
	f, err := os.Open(localSource)
	if err != nil {
		return wrapLocalError(err, "Failed to open %#v", localSource)
	}
	defer f.Close()

	parentPath, name := destination[:len(destination)-1], destination[len(destination)-1]
	parentID, err := t.resolver.Resolve(ctx, parentPath, true)
	if err != nil {
		return err
	}
	item, err := t.client.CreateItem(ctx, parentID, name, ItemKindFile)
	if err != nil {
		return util.StatusWrapf(err, "Failed to create file %#v", strings.Join(destination, "/"))
	}

	var r io.Reader = f
	if reportProgress && t.progressReporter != nil {
		sizeBytes := int64(-1)
		if fileInfo, err := f.Stat(); err == nil {
			sizeBytes = fileInfo.Size()
		}
		progress := t.progressReporter.Begin(displayName, sizeBytes)
		defer progress.End()
		r = progressReader{Reader: f, progress: progress}
	}
	if err := t.client.UploadBytes(ctx, item, r); err != nil {
		return util.StatusWrapf(err, "Failed to upload %#v to %#v", localSource, strings.Join(destination, "/"))
	}
	return nil
}

// Download a file at a path in the remote store to the local file
// system. The contents are written to a temporary file next to the
// destination, which is renamed into place upon success.
func (t *Transferer) Download(ctx context.Context, source []string, localDestination string, displayName string, reportProgress bool) error {
	id, err := t.resolver.Resolve(ctx, source, false)
	if err != nil {
		return err
	}
	item, err := t.client.GetItem(ctx, id)
	if err != nil {
		return util.StatusWrapf(err, "Failed to obtain metadata of %#v", strings.Join(source, "/"))
	}
	if item.Kind == ItemKindFolder {
		return status.Errorf(codes.InvalidArgument, "Path %#v is a folder", strings.Join(source, "/"))
	}

	r, err := t.client.DownloadBytes(ctx, id)
	if err != nil {
		return util.StatusWrapf(err, "Failed to download %#v", strings.Join(source, "/"))
	}
	defer r.Close()

	f, err := os.CreateTemp(filepath.Dir(localDestination), "."+filepath.Base(localDestination)+".*.tmp")
	if err != nil {
		return wrapLocalError(err, "Failed to create temporary file for %#v", localDestination)
	}
	temporaryPath := f.Name()

	var w io.Writer = f
	if reportProgress && t.progressReporter != nil {
		progress := t.progressReporter.Begin(displayName, item.SizeBytes)
		defer progress.End()
		w = progressWriter{Writer: f, progress: progress}
	}
	_, err = io.Copy(w, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(temporaryPath)
		return util.StatusWrapfWithCode(err, codes.Unavailable, "Failed to download %#v to %#v", strings.Join(source, "/"), localDestination)
	}
	if err := os.Rename(temporaryPath, localDestination); err != nil {
		os.Remove(temporaryPath)
		return wrapLocalError(err, "Failed to move downloaded file to %#v", localDestination)
	}
	return nil
}
