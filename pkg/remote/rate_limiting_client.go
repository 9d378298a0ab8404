package remote

import (
	"context"
	"io"
)

type rateLimitingClient struct {
	base    Client
	limiter CallRateLimiter
}

// NewRateLimitingClient is a decorator for Client that lets every call
// wait for permission from a CallRateLimiter. Passing the same
// CallRateLimiter to multiple decorators bounds the combined rate of
// calls they issue.
func NewRateLimitingClient(base Client, limiter CallRateLimiter) Client {
	return &rateLimitingClient{
		base:    base,
		limiter: limiter,
	}
}

func (c *rateLimitingClient) ListChildren(ctx context.Context, parentID, name string) ([]Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.base.ListChildren(ctx, parentID, name)
}

func (c *rateLimitingClient) CreateItem(ctx context.Context, parentID, name string, kind ItemKind) (Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Item{}, err
	}
	return c.base.CreateItem(ctx, parentID, name, kind)
}

func (c *rateLimitingClient) UploadBytes(ctx context.Context, item Item, r io.Reader) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.base.UploadBytes(ctx, item, r)
}

func (c *rateLimitingClient) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.base.DownloadBytes(ctx, id)
}

func (c *rateLimitingClient) GetItem(ctx context.Context, id string) (Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Item{}, err
	}
	return c.base.GetItem(ctx, id)
}
