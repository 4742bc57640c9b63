package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	ie "github.com/voidshard/b2b/pkg/errors"
)

// genericPost is a helper to POST data to a given URL and unmarshal the response
func (c *Client) genericPost(ctx context.Context, addr *url.URL, in interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, addr, in, out)
}

// genericPatch is a helper to PATCH data to a given URL and unmarshal the response
func (c *Client) genericPatch(ctx context.Context, addr *url.URL, in interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPatch, addr, in, out)
}

// genericGet is a helper to GET data from a given URL and unmarshal the response.
// Implies the Query string is already set, if needed.
func (c *Client) genericGet(ctx context.Context, addr *url.URL, out interface{}) error {
	return c.do(ctx, http.MethodGet, addr, nil, out)
}

func (c *Client) do(ctx context.Context, method string, addr *url.URL, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, addr.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 { // some error code, assume message is error message
		return toError(resp.StatusCode, data)
	}

	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	return d.Decode(out)
}

// toError maps an http error status back to a b2b error, so callers can use errors.Is
func toError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("%w %s", ie.ErrInvalidArg, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w %s", ie.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w %s", ie.ErrInvalidState, msg)
	}
	return fmt.Errorf("bad status code %d, returned %s", code, msg)
}
