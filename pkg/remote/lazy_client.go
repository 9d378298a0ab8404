package remote

import (
	"context"
	"io"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/util"

	"go.uber.org/zap"
)

// ClientFactory creates an authenticated Client.
type ClientFactory func(ctx context.Context) (Client, error)

// LazyClient is a Client that defers authentication until the first
// call is made against it. The underlying Client is created at most
// once; if creation fails, the next call tries again.
type LazyClient struct {
	factory ClientFactory
	logger  *zap.Logger

	lock   sync.Mutex
	client Client
}

var _ Client = (*LazyClient)(nil)

// NewLazyClient creates a LazyClient. The factory is not invoked until
// Client() or any of the Client methods is called.
func NewLazyClient(factory ClientFactory, logger *zap.Logger) *LazyClient {
	return &LazyClient{
		factory: factory,
		logger:  logger,
	}
}

// Client returns the underlying Client, creating it if this has not
// been done already. Successive calls return the same Client.
func (c *LazyClient) Client(ctx context.Context) (Client, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.client == nil {
		client, err := c.factory(ctx)
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create client")
		}
		c.logger.Debug("Created remote store client")
		c.client = client
	}
	return c.client, nil
}

// ListChildren lists the children of a folder, creating the
// underlying Client if needed.
func (c *LazyClient) ListChildren(ctx context.Context, parentID, name string) ([]Item, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListChildren(ctx, parentID, name)
}

// CreateItem creates a file or folder, creating the underlying Client
// if needed.
func (c *LazyClient) CreateItem(ctx context.Context, parentID, name string, kind ItemKind) (Item, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return Item{}, err
	}
	return client.CreateItem(ctx, parentID, name, kind)
}

// UploadBytes replaces the contents of a file, creating the underlying
// Client if needed.
func (c *LazyClient) UploadBytes(ctx context.Context, item Item, r io.Reader) error {
	client, err := c.Client(ctx)
	if err != nil {
		return err
	}
	return client.UploadBytes(ctx, item, r)
}

// DownloadBytes returns the contents of a file, creating the
// underlying Client if needed.
func (c *LazyClient) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.DownloadBytes(ctx, id)
}

// GetItem returns the metadata of an item, creating the underlying
// Client if needed.
func (c *LazyClient) GetItem(ctx context.Context, id string) (Item, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return Item{}, err
	}
	return client.GetItem(ctx, id)
}
