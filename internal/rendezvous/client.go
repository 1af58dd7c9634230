package rendezvous

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a rendezvous service over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

// Register announces addr and returns the id other participants dial.
func (c *Client) Register(ctx context.Context, addr string) (string, error) {
	body, err := json.Marshal(struct {
		Addr string `json:"addr"`
	}{Addr: addr})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/peers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var e Entry
	if err := c.do(req, http.StatusCreated, &e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// Resolve returns the link listener address registered under id.
func (c *Client) Resolve(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/peers/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	var e Entry
	if err := c.do(req, http.StatusOK, &e); err != nil {
		return "", err
	}
	return e.Addr, nil
}

func (c *Client) Unregister(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/peers/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusNoContent, nil)
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != want:
		return fmt.Errorf("rendezvous %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
