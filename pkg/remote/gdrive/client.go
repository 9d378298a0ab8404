package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// FolderMIMEType is the MIME type Google Drive assigns to folders.
const FolderMIMEType = "application/vnd.google-apps.folder"

const (
	itemFields  = "id, name, mimeType, size"
	listFields  = googleapi.Field("nextPageToken, files(" + itemFields + ")")
	maxPageSize = 1000
)

type client struct {
	service *drive.Service
}

// NewClient creates a remote.Client that is backed by the Google Drive
// v3 API, authenticating with a service account or OAuth2 client
// credentials file. Items residing in shared drives are supported.
func NewClient(ctx context.Context, credentialsPath string) (remote.Client, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.Unauthenticated, "Failed to create Google Drive service using credentials %#v", credentialsPath)
	}
	return NewClientFromService(service), nil
}

// NewClientFromService creates a remote.Client that is backed by an
// existing Google Drive service.
func NewClientFromService(service *drive.Service) remote.Client {
	return &client{service: service}
}

// convertError translates errors returned by the Google Drive API to
// gRPC status codes.
func convertError(err error, format string, args ...any) error {
	code := codes.Unavailable
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			code = codes.NotFound
		case http.StatusUnauthorized:
			code = codes.Unauthenticated
		case http.StatusForbidden:
			code = codes.PermissionDenied
		case http.StatusTooManyRequests:
			code = codes.ResourceExhausted
		}
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}

// escapeQueryString escapes a string for use in a quoted literal in a
// files.list query.
func escapeQueryString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func newItem(f *drive.File) remote.Item {
	item := remote.Item{
		ID:        f.Id,
		Name:      f.Name,
		Kind:      remote.ItemKindFile,
		SizeBytes: f.Size,
	}
	if f.MimeType == FolderMIMEType {
		item.Kind = remote.ItemKindFolder
	}
	return item
}

func (c *client) ListChildren(ctx context.Context, parentID, name string) ([]remote.Item, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQueryString(parentID))
	if name != "" {
		query += fmt.Sprintf(" and name='%s'", escapeQueryString(name))
	}
	var items []remote.Item
	if err := c.service.Files.List().
		Q(query).
		PageSize(maxPageSize).
		Fields(listFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				items = append(items, newItem(f))
			}
			return nil
		}); err != nil {
		return nil, convertError(err, "Failed to list children of %#v", parentID)
	}
	return items, nil
}

func (c *client) CreateItem(ctx context.Context, parentID, name string, kind remote.ItemKind) (remote.Item, error) {
	metadata := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}
	if kind == remote.ItemKindFolder {
		metadata.MimeType = FolderMIMEType
	}
	f, err := c.service.Files.Create(metadata).
		Fields(itemFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return remote.Item{}, convertError(err, "Failed to create %s %#v in %#v", kind, name, parentID)
	}
	return newItem(f), nil
}

func (c *client) UploadBytes(ctx context.Context, item remote.Item, r io.Reader) error {
	if _, err := c.service.Files.Update(item.ID, &drive.File{}).
		Media(r).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do(); err != nil {
		return convertError(err, "Failed to upload contents of %#v", item.ID)
	}
	return nil
}

func (c *client) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	response, err := c.service.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, convertError(err, "Failed to download %#v", id)
	}
	return response.Body, nil
}

func (c *client) GetItem(ctx context.Context, id string) (remote.Item, error) {
	f, err := c.service.Files.Get(id).
		Fields(itemFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return remote.Item{}, convertError(err, "Failed to obtain metadata of %#v", id)
	}
	return newItem(f), nil
}
