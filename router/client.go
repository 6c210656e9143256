package router

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.miragespace.co/ringstore/spec/transfer"
)

const (
	dialTimeout    = time.Second * 2
	requestTimeout = time.Second * 2
)

// nodeClient is the connection handle for one storage node. Each target gets
// its own transport so its idle connections can be released independently
// when a migration finishes.
type nodeClient struct {
	base string
	http *http.Client
}

func newNodeClient(addr string) *nodeClient {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}
	return &nodeClient{
		base: "http://" + addr,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

func (c *nodeClient) Close() {
	c.http.CloseIdleConnections()
}

func (c *nodeClient) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *nodeClient) get(ctx context.Context, pathAndQuery string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *nodeClient) Put(ctx context.Context, key, value string) error {
	return c.postForm(ctx, "/put", url.Values{"key": {key}, "val": {value}})
}

func (c *nodeClient) Delete(ctx context.Context, key string) error {
	return c.postForm(ctx, "/del", url.Values{"key": {key}})
}

func (c *nodeClient) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := c.get(ctx, "/get?key="+url.QueryEscape(key))
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return string(body), true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("/get: unexpected status %d", resp.StatusCode)
	}
}

func (c *nodeClient) RangeExport(ctx context.Context, start, end uint64) ([]transfer.Pair, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/range?start=%d&end=%d", start, end))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("/range: unexpected status %d", resp.StatusCode)
	}
	return transfer.Decode(resp.Body)
}

func (c *nodeClient) ExportAll(ctx context.Context) ([]transfer.Pair, error) {
	resp, err := c.get(ctx, "/all")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("/all: unexpected status %d", resp.StatusCode)
	}
	return transfer.Decode(resp.Body)
}

func (c *nodeClient) Stats(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, "/stats")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("/stats: unexpected status %d", resp.StatusCode)
	}
	return strconv.Atoi(strings.TrimSpace(string(body)))
}
