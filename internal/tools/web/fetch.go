// Package web provides the fetch tool with a thread-safe response cache.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/foundry/internal/infra"
	"github.com/haasonsaas/foundry/internal/tools"
)

// DefaultMaxBytes caps a fetched body.
const DefaultMaxBytes = 100_000

// FetchTool GETs a URL. Bodies are cached in a TTL'd, size-bounded cache
// keyed by the URL only, so the same URL yields the same cached response
// regardless of caller options. All HTTP I/O happens outside the cache lock.
type FetchTool struct {
	client *http.Client
	cache  *infra.ByteCache
}

// NewFetchTool creates the fetch tool. client may be nil.
func NewFetchTool(client *http.Client, cache *infra.ByteCache) *FetchTool {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cache == nil {
		cache = infra.NewByteCache(0, 0)
	}
	return &FetchTool{client: client, cache: cache}
}

func (t *FetchTool) Descriptor() tools.Descriptor {
	zero := float64(0)
	return tools.Descriptor{
		Name:        "fetch",
		Description: "Fetch a URL over HTTP GET and return the response body.",
		Category:    tools.CategoryWeb,
		Params: []tools.Param{
			{
				Name:        "url",
				Type:        tools.TypeString,
				Description: "URL to fetch (http or https).",
				Required:    true,
			},
			{
				Name:        "max_bytes",
				Type:        tools.TypeInteger,
				Description: "Maximum body bytes to return.",
				Default:     DefaultMaxBytes,
				Minimum:     &zero,
			},
		},
	}
}

func (t *FetchTool) Execute(ctx context.Context, ec *tools.ExecContext, args map[string]any) (*tools.Result, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return tools.Errorf("url is required"), nil
	}

	maxBytes := DefaultMaxBytes
	switch v := args["max_bytes"].(type) {
	case int:
		maxBytes = v
	case float64:
		maxBytes = int(v)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if ec.DryRun {
		return tools.Ok("[dry-run] would fetch: " + url), nil
	}

	if body, ok := t.cache.Get(url); ok {
		return t.bodyResult(url, body, maxBytes, true), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tools.Errorf("invalid url %s: %v", url, err), nil
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return tools.Errorf("fetch %s: %v", url, err), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return tools.Errorf("fetch %s: HTTP %d", url, resp.StatusCode).
			WithMeta("status_code", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)+1))
	if err != nil {
		return tools.Errorf("read body of %s: %v", url, err), nil
	}

	t.cache.Set(url, body)
	return t.bodyResult(url, body, maxBytes, false), nil
}

func (t *FetchTool) bodyResult(url string, body []byte, maxBytes int, cached bool) *tools.Result {
	truncated := len(body) > maxBytes
	if truncated {
		body = body[:maxBytes]
	}
	content := string(body)
	if truncated {
		content += fmt.Sprintf("\n... [truncated at %d bytes]", maxBytes)
	}
	return tools.Ok(content).
		WithMeta("url", url).
		WithMeta("cached", cached).
		WithMeta("truncated", truncated)
}
