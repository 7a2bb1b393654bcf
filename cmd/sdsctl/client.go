package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type sdsClient struct {
	baseURL string
	http    *http.Client
}

func newClient() *sdsClient {
	return &sdsClient{
		baseURL: serverURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs a request against the server, attaching the tenant query
// parameter and the actor header, and decodes a 2xx JSON response into v.
func (c *sdsClient) do(method, path string, query url.Values, body any, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if t := resolvedTenant(); t != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("tenant", t)
	}
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a := resolvedActor(); a != "" {
		req.Header.Set("X-Actor-ID", a)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *sdsClient) getJSON(path string, query url.Values, v any) error {
	return c.do(http.MethodGet, path, query, nil, v)
}

func (c *sdsClient) postJSON(path string, body any, v any) error {
	return c.do(http.MethodPost, path, nil, body, v)
}

func (c *sdsClient) putJSON(path string, body any, v any) error {
	return c.do(http.MethodPut, path, nil, body, v)
}

func (c *sdsClient) patchJSON(path string, body any, v any) error {
	return c.do(http.MethodPatch, path, nil, body, v)
}
