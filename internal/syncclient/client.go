// Package syncclient talks to the remote bookmark endpoint over HTTP+JSON.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hyperjump/petitpdf/internal/config"
	"github.com/hyperjump/petitpdf/internal/models"
	"go.uber.org/zap"
)

// BookmarkIDKey is the field of the create response that carries the new bookmark id.
const BookmarkIDKey = "bookmarkId"

// Failure is the single error kind returned by every remote operation.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func failf(format string, args ...interface{}) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

// AsFailure returns the Failure wrapped in err, if any.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Client performs the three bookmark operations. Each call is exactly one round trip;
// there is no retry and no caching.
type Client struct {
	listURL    string
	createURL  string
	deleteURL  string
	userID     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets a logger for debug output (request issued, status received).
func WithLogger(l *zap.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient builds a client for the endpoints in cfg. Requests are attributed to cfg.UserID.
func NewClient(cfg config.SyncConfig, opts ...ClientOption) (*Client, error) {
	if cfg.UserID == "" {
		return nil, errors.New("sync user id is required")
	}
	listURL, err := url.JoinPath(cfg.BaseURL, cfg.ListPath)
	if err != nil {
		return nil, fmt.Errorf("invalid list url: %w", err)
	}
	createURL, err := url.JoinPath(cfg.BaseURL, cfg.CreatePath)
	if err != nil {
		return nil, fmt.Errorf("invalid create url: %w", err)
	}
	deleteURL, err := url.JoinPath(cfg.BaseURL, cfg.DeletePath)
	if err != nil {
		return nil, fmt.Errorf("invalid delete url: %w", err)
	}
	c := &Client{
		listURL:    listURL,
		createURL:  createURL,
		deleteURL:  deleteURL,
		userID:     cfg.UserID,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UserID returns the principal requests are made for.
func (c *Client) UserID() string {
	return c.userID
}

// ListBookmarks returns the remote bookmarks of a document.
func (c *Client) ListBookmarks(ctx context.Context, documentID string) ([]models.BookmarkRecord, error) {
	q := url.Values{}
	q.Set("userId", c.userID)
	q.Set("pdfId", documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, failf("list bookmarks: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, failf("list bookmarks: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failf("list bookmarks: server returned %d", resp.StatusCode)
	}

	var records []models.BookmarkRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, failf("list bookmarks: decode response: %v", err)
	}
	return records, nil
}

type createRequest struct {
	UserID string `json:"userId"`
	PDFID  string `json:"pdfId"`
	Page   int    `json:"page"`
}

// CreateBookmark bookmarks page of a document and returns the decoded response object,
// which carries the new id under BookmarkIDKey.
func (c *Client) CreateBookmark(ctx context.Context, documentID string, page int) (map[string]string, error) {
	resp, err := c.postJSON(ctx, c.createURL, createRequest{UserID: c.userID, PDFID: documentID, Page: page})
	if err != nil {
		return nil, failf("create bookmark: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failf("create bookmark: server returned %d", resp.StatusCode)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, failf("create bookmark: decode response: %v", err)
	}
	return out, nil
}

type deleteRequest struct {
	BookmarkID string `json:"bookmarkId"`
}

// DeleteBookmark removes a bookmark. Only HTTP 200 counts as success; the body is ignored.
func (c *Client) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	resp, err := c.postJSON(ctx, c.deleteURL, deleteRequest{BookmarkID: bookmarkID})
	if err != nil {
		return failf("delete bookmark: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return failf("delete bookmark: server returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, target string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.logger.Debug("sync request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("sync response", zap.String("url", req.URL.String()), zap.Int("status", resp.StatusCode))
	return resp, nil
}
