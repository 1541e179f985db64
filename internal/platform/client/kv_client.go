package client

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Client is a typed resty-based client for the engine's HTTP transport
// (internal/platform/server), for tests and external tools that would
// otherwise hand-roll net/http calls.
type Client struct {
	client  *resty.Client
	baseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		client:  resty.New(),
		baseURL: baseURL,
	}
}

// Get fetches the value for key. found is false on a 404 response.
func (c *Client) Get(key uint64) (value []byte, found bool, err error) {
	resp, err := c.client.R().Get(fmt.Sprintf("%s/kv/%d", c.baseURL, key))
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode() == 404 {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, fmt.Errorf("kv client: get %d: %s", key, resp.Status())
	}
	return resp.Body(), true, nil
}

func (c *Client) Put(key uint64, value []byte) error {
	resp, err := c.client.R().SetBody(value).Put(fmt.Sprintf("%s/kv/%d", c.baseURL, key))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("kv client: put %d: %s", key, resp.Status())
	}
	return nil
}

func (c *Client) Delete(key uint64) error {
	resp, err := c.client.R().Delete(fmt.Sprintf("%s/kv/%d", c.baseURL, key))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("kv client: delete %d: %s", key, resp.Status())
	}
	return nil
}

// EntryDTO mirrors the JSON shape the server's range endpoint emits.
type EntryDTO struct {
	Key   uint64 `json:"key"`
	Value string `json:"value,omitempty"`
}

func (c *Client) GetRange(start uint64, n int) ([]EntryDTO, error) {
	var out []EntryDTO
	resp, err := c.client.R().
		SetQueryParam("n", fmt.Sprintf("%d", n)).
		SetResult(&out).
		Get(fmt.Sprintf("%s/range/%d", c.baseURL, start))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("kv client: range %d,%d: %s", start, n, resp.Status())
	}
	return out, nil
}
