package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/buildbarn/bb-fetch/pkg/remote"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type node struct {
	item     remote.Item
	children []string
	contents []byte
	trashed  bool
}

// Client is a remote.Client that keeps all items in memory. Like real
// backends, it permits multiple children of a folder to have the same
// name, and it supports moving items to the trash. It keeps track of
// the number of calls made against it.
type Client struct {
	lock              sync.Mutex
	nodes             map[string]*node
	nextID            int
	listChildrenCalls int
	createItemCalls   int
}

var _ remote.Client = (*Client)(nil)

// NewClient creates an empty in-memory store, having a single root
// folder with the provided ID.
func NewClient(rootID string) *Client {
	return &Client{
		nodes: map[string]*node{
			rootID: {
				item: remote.Item{ID: rootID, Kind: remote.ItemKindFolder},
			},
		},
	}
}

func (c *Client) getNode(id string) (*node, error) {
	n, ok := c.nodes[id]
	if !ok || n.trashed {
		return nil, status.Errorf(codes.NotFound, "Item %#v does not exist", id)
	}
	return n, nil
}

// ListChildren returns the children of a folder in creation order.
func (c *Client) ListChildren(ctx context.Context, parentID, name string) ([]remote.Item, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.listChildrenCalls++
	parent, err := c.getNode(parentID)
	if err != nil {
		return nil, err
	}
	var items []remote.Item
	for _, childID := range parent.children {
		child := c.nodes[childID]
		if !child.trashed && (name == "" || child.item.Name == name) {
			items = append(items, child.item)
		}
	}
	return items, nil
}

// CreateItem creates a file or folder. Names are not required to be
// unique.
func (c *Client) CreateItem(ctx context.Context, parentID, name string, kind remote.ItemKind) (remote.Item, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.createItemCalls++
	parent, err := c.getNode(parentID)
	if err != nil {
		return remote.Item{}, err
	}
	if parent.item.Kind != remote.ItemKindFolder {
		return remote.Item{}, status.Errorf(codes.FailedPrecondition, "Item %#v is not a folder", parentID)
	}
	c.nextID++
	item := remote.Item{
		ID:   fmt.Sprintf("item-%d", c.nextID),
		Name: name,
		Kind: kind,
	}
	c.nodes[item.ID] = &node{item: item}
	parent.children = append(parent.children, item.ID)
	return item, nil
}

// UploadBytes replaces the contents of a file. The contents are only
// stored if the stream is read without errors.
func (c *Client) UploadBytes(ctx context.Context, item remote.Item, r io.Reader) error {
	contents, err := io.ReadAll(r)
	if err != nil {
		return util.StatusWrapWithCode(err, codes.Unavailable, "Failed to read contents")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	n, err := c.getNode(item.ID)
	if err != nil {
		return err
	}
	if n.item.Kind != remote.ItemKindFile {
		return status.Errorf(codes.FailedPrecondition, "Item %#v is not a file", item.ID)
	}
	n.contents = contents
	n.item.SizeBytes = int64(len(contents))
	return nil
}

// DownloadBytes returns the contents of a file.
func (c *Client) DownloadBytes(ctx context.Context, id string) (io.ReadCloser, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	n, err := c.getNode(id)
	if err != nil {
		return nil, err
	}
	if n.item.Kind != remote.ItemKindFile {
		return nil, status.Errorf(codes.FailedPrecondition, "Item %#v is not a file", id)
	}
	return io.NopCloser(bytes.NewReader(n.contents)), nil
}

// GetItem returns the metadata of an item.
func (c *Client) GetItem(ctx context.Context, id string) (remote.Item, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	n, err := c.getNode(id)
	if err != nil {
		return remote.Item{}, err
	}
	return n.item, nil
}

// Trash moves an item to the trash, hiding it from all further calls.
func (c *Client) Trash(id string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if n, ok := c.nodes[id]; ok {
		n.trashed = true
	}
}

// ListChildrenCalls returns the number of calls to ListChildren() made
// so far.
func (c *Client) ListChildrenCalls() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.listChildrenCalls
}

// CreateItemCalls returns the number of calls to CreateItem() made so
// far.
func (c *Client) CreateItemCalls() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.createItemCalls
}
