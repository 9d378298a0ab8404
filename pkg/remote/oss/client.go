package oss

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RootID is the ID of the root folder of a bucket. Folders are
// represented by keys ending with a slash. Files are represented by all
// other keys.
const RootID = ""

const maxKeys = 1000

type client struct {
	bucket *oss.Bucket
}

// NewClient creates a remote.Client that stores items as objects in an
// Alibaba Cloud OSS bucket. Object keys are unique, meaning that unlike
// other backends, a folder can never have multiple children with the
// same name.
//
// The OSS SDK does not accept a context for requests. Cancellation is
// only honoured before a request is issued, which includes every page
// of a listing.
func NewClient(endpoint, accessKeyID, accessKeySecret, bucketName string) (remote.Client, error) {
	ossClient, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to create OSS client for endpoint %#v", endpoint)
	}
	bucket, err := ossClient.Bucket(bucketName)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.InvalidArgument, "Failed to open bucket %#v", bucketName)
	}
	return &client{bucket: bucket}, nil
}

func convertError(err error, format string, args ...any) error {
	code := codes.Unavailable
	var serviceErr oss.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.StatusCode {
		case http.StatusNotFound:
			code = codes.NotFound
		case http.StatusForbidden:
			code = codes.PermissionDenied
		case http.StatusTooManyRequests:
			code = codes.ResourceExhausted
		}
	}
	return util.StatusWrapfWithCode(err, code, format, args...)
}

func baseName(key string) string {
	key = strings.TrimSuffix(key, "/")
	return key[strings.LastIndexByte(key, '/')+1:]
}

// listObjects lists all objects and common prefixes directly underneath
// a prefix, traversing all pages.
func (c *client) listObjects(ctx context.Context, prefix string, yield func(key string, sizeBytes int64, isFolder bool)) error {
	marker := ""
	for {
		if err := ctx.Err(); err != nil {
			return util.StatusFromContext(ctx)
		}
		result, err := c.bucket.ListObjects(
			oss.Prefix(prefix),
			oss.Delimiter("/"),
			oss.Marker(marker),
			oss.MaxKeys(maxKeys))
		if err != nil {
			return err
		}
		for _, object := range result.Objects {
			if strings.HasSuffix(object.Key, "/") {
				// Folder marker of the parent itself.
				continue
			}
			yield(object.Key, object.Size, false)
		}
		for _, commonPrefix := range result.CommonPrefixes {
			yield(commonPrefix, 0, true)
		}
		if !result.IsTruncated {
			return nil
		}
		marker = result.NextMarker
	}
}

func (c *client) ListChildren(ctx context.Context, parentID, name string) ([]remote.Item, error) {
	var items []remote.Item
	if err := c.listObjects(ctx, parentID+name, func(key string, sizeBytes int64, isFolder bool) {
		item := remote.Item{
			ID:        key,
			Name:      baseName(key),
			Kind:      remote.ItemKindFile,
			SizeBytes: sizeBytes,
		}
		if isFolder {
			item.Kind = remote.ItemKindFolder
		}
		if name == "" || item.Name == name {
			items = append(items, item)
		}
	}); err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, convertError(err, "Failed to list children of %#v", parentID)
	}
	return items, nil
}

func (c *client) CreateItem(ctx context.Context, parentID, name string, kind remote.ItemKind) (remote.Item, error) {
	key := parentID + name
	if kind == remote.ItemKindFolder {
		key += "/"
	}
	if err := ctx.Err(); err != nil {
		return remote.Item{}, util.StatusFromContext(ctx)
	}
	if err := c.bucket.PutObject(key, strings.NewReader("")); err != nil {
		return remote.Item{}, convertError(err, "Failed to create %s %#v", kind, key)
	}
	return remote.Item{ID: key, Name: name, Kind: kind}, nil
}

func (c *client) UploadBytes(ctx context.Context, item remote.Item, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return util.StatusFromContext(ctx)
	}
	if err := c.bucket.PutObject(item.ID, r); err != nil {
		return convertError(err, "Failed to upload contents of %#v", item.ID)
	}
	return nil
}

func (c *client) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, util.StatusFromContext(ctx)
	}
	r, err := c.bucket.GetObject(id)
	if err != nil {
		return nil, convertError(err, "Failed to download %#v", id)
	}
	return r, nil
}

func (c *client) GetItem(ctx context.Context, id string) (remote.Item, error) {
	if id == RootID || strings.HasSuffix(id, "/") {
		return remote.Item{ID: id, Name: baseName(id), Kind: remote.ItemKindFolder}, nil
	}
	if err := ctx.Err(); err != nil {
		return remote.Item{}, util.StatusFromContext(ctx)
	}
	header, err := c.bucket.GetObjectDetailedMeta(id)
	if err != nil {
		return remote.Item{}, convertError(err, "Failed to obtain metadata of %#v", id)
	}
	sizeBytes, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	if err != nil {
		sizeBytes = -1
	}
	return remote.Item{ID: id, Name: baseName(id), Kind: remote.ItemKindFile, SizeBytes: sizeBytes}, nil
}
