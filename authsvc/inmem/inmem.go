package inmem

import (
	"errors"
	"sync"

	consul "github.com/hashicorp/consul/api"
)

// Client stores the uuids of live tokens. A key that is present means the
// token has not been revoked.
type Client interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

type client struct {
	consul *consul.Client
}

// NewClient returns a Client backed by the Consul KV store.
func NewClient(c *consul.Client) Client {
	return &client{c}
}

func (c *client) Get(key string) ([]byte, error) {
	kv, _, err := c.consul.KV().Get(key, nil)
	if err != nil {
		return nil, err
	}

	if kv == nil {
		return nil, ErrKeyNotFound
	}

	return kv.Value, nil
}

func (c *client) Put(key string, value []byte) error {
	p := &consul.KVPair{Key: key, Value: value}
	_, err := c.consul.KV().Put(p, nil)

	return err
}

func (c *client) Delete(key string) error {
	_, err := c.consul.KV().Delete(key, nil)

	return err
}

type localClient struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

// NewLocalClient returns a Client that keeps everything in process memory.
func NewLocalClient() Client {
	return &localClient{data: map[string][]byte{}}
}

func (c *localClient) Get(key string) ([]byte, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	v, ok := c.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (c *localClient) Put(key string, value []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *localClient) Delete(key string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	delete(c.data, key)
	return nil
}

var ErrKeyNotFound = errors.New("key not found")
