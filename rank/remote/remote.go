// Package remote provides a rank.Client speaking the HTTP/JSON wire
// protocol of Elasticsearch-compatible search services.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/simidx/simidx/rank"
)

// Options contains configuration for the remote client.
type Options struct {
	// HTTPClient is the transport used for all calls.
	HTTPClient *http.Client

	// RequestTimeout bounds each individual request.
	RequestTimeout time.Duration

	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64
}

// DefaultOptions contains the default configuration for the remote client.
var DefaultOptions = Options{
	RequestTimeout: 10 * time.Second,
}

// Client implements rank.Client over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	opts    Options
}

var _ rank.Client = (*Client)(nil)

// New creates a remote client for the service at baseURL and verifies
// reachability with a ping.
func New(ctx context.Context, baseURL string, optFns ...func(o *Options)) (*Client, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c := &Client{baseURL: u, http: httpClient, limiter: limiter, opts: opts}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Ping verifies the service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodHead, "/", nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote: ping failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	u := *c.baseURL
	u.Path = path

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// CreateIndex creates the named search index. An already-existing index
// is treated as acknowledged.
func (c *Client) CreateIndex(ctx context.Context, index string) error {
	resp, err := c.do(ctx, http.MethodPut, "/"+index, nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// resource_already_exists and similar acknowledgments
		return nil
	default:
		return fmt.Errorf("remote: create index %q failed: %s", index, resp.Status)
	}
}

// DeleteIndex removes the named index.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/"+index, nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remote: delete index %q failed: %s", index, resp.Status)
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
	} `json:"items"`
}

// BulkIngest sends documents through the _bulk endpoint (NDJSON framing).
func (c *Client) BulkIngest(ctx context.Context, index string, docs []rank.Document) (rank.BulkResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]map[string]string{"index": {"_id": doc.ID}}
		if err := enc.Encode(action); err != nil {
			return rank.BulkResult{}, err
		}
		if err := enc.Encode(map[string]string{"text": doc.Text}); err != nil {
			return rank.BulkResult{}, err
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/"+index+"/_bulk", buf.Bytes(), "application/x-ndjson")
	if err != nil {
		return rank.BulkResult{}, err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return rank.BulkResult{Failed: len(docs)}, fmt.Errorf("remote: bulk ingest failed: %s", resp.Status)
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return rank.BulkResult{}, err
	}

	res := rank.BulkResult{Indexed: len(docs)}
	if br.Errors {
		res.Indexed = 0
		res.Failed = 0
		for _, item := range br.Items {
			failed := false
			for _, op := range item {
				if op.Status >= 300 {
					failed = true
				}
			}
			if failed {
				res.Failed++
			} else {
				res.Indexed++
			}
		}
	}
	return res, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID    string  `json:"_id"`
			Score float32 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search issues a match query against the "text" field.
func (c *Client) Search(ctx context.Context, index, query string, k int) ([]rank.Hit, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"match": map[string]any{"text": query},
		},
		"size": k,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/"+index+"/_search", body, "application/json")
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote: search failed: %s", resp.Status)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}

	hits := make([]rank.Hit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		hits = append(hits, rank.Hit{ID: h.ID, Score: h.Score})
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
