package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// NewHTTPClient builds an [http.Client] with a public-suffix aware cookie jar.
//
// A zero timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(fmt.Sprintf("failed to create cookie jar: %v", err))
	}
	return &http.Client{Jar: jar, Timeout: timeout}
}

// NewRequest builds a request for path relative to the base URL, JSON-encoding body when non-nil.
func (c *Coordinator) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// DoJSON sends a JSON request and decodes a 2xx response body into out (skipped when out is nil).
func (c *Coordinator) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.NewRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// GetJSON performs GET path?query and decodes the body into out.
func (c *Coordinator) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON performs a JSON POST.
func (c *Coordinator) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, nil, in, out)
}

// PutJSON performs a JSON PUT.
func (c *Coordinator) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.DoJSON(ctx, http.MethodPut, path, nil, in, out)
}

// PatchJSON performs a JSON PATCH.
func (c *Coordinator) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.DoJSON(ctx, http.MethodPatch, path, nil, in, out)
}

// Delete performs a DELETE and discards the body.
func (c *Coordinator) Delete(ctx context.Context, path string) error {
	return c.DoJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

// PostRaw posts a JSON body and returns the raw response bytes with their content type.
//
// Used for the audio stream endpoint, which answers with bytes instead of JSON.
func (c *Coordinator) PostRaw(ctx context.Context, path string, in any) ([]byte, string, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
