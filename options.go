package wayfarer

import (
	"github.com/wayfarerhq/wayfarer/internal/blob"
	"github.com/wayfarerhq/wayfarer/internal/transport"
	"github.com/wayfarerhq/wayfarer/pkg/remote"
)

// Option is a function that configures a wayfarer client.
type Option func(*config) error

// config holds client configuration assembled from options.
type config struct {
	databasePath string
	remote       remote.Remote
	blobs        BlobStore
	ownerID      string
	online       bool
}

func defaultConfig() *config {
	return &config{
		online: true,
	}
}

// WithDatabase configures the path of the durable local store. Without it
// the client runs memory-only: snapshots and the mutation log do not survive
// a restart.
func WithDatabase(path string) Option {
	return func(c *config) error {
		c.databasePath = path
		return nil
	}
}

// WithRemote configures the network boundary implementation.
func WithRemote(r remote.Remote) Option {
	return func(c *config) error {
		c.remote = r
		return nil
	}
}

// WithRemoteServer configures the HTTP remote. An api key can be provided
// for Bearer authentication, otherwise use the empty string.
func WithRemoteServer(url, apiKey string) Option {
	return func(c *config) error {
		c.remote = transport.New(url, apiKey)
		return nil
	}
}

// WithBlobStore configures the attachment storage implementation.
func WithBlobStore(b BlobStore) Option {
	return func(c *config) error {
		c.blobs = b
		return nil
	}
}

// WithObjectStore configures the attachment storage from object store
// connection settings.
func WithObjectStore(cfg blob.Config) Option {
	return func(c *config) error {
		client, err := blob.NewClient(cfg)
		if err != nil {
			return err
		}
		c.blobs = client
		return nil
	}
}

// WithOwnerID configures the id under which attachments are stored.
func WithOwnerID(ownerID string) Option {
	return func(c *config) error {
		c.ownerID = ownerID
		return nil
	}
}

// WithOnline configures the initial connectivity state. Defaults to online.
func WithOnline(online bool) Option {
	return func(c *config) error {
		c.online = online
		return nil
	}
}
