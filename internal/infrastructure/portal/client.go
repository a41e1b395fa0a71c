// Package portal reads cases and notifications from the legal portal's server-rendered pages.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"CaseScanner/internal/config"
	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

const caseMarker = "i.ci.ci--barcode"

// Client opens case pages over HTTP and hands out lazily parsed tables.
type Client struct {
	http   *resty.Client
	cfg    config.PortalConfig
	logger *slog.Logger
}

var (
	_ ports.CaseSource       = (*Client)(nil)
	_ ports.NotificationFeed = (*Client)(nil)
)

// NewClient wires a resty client with the portal session cookie and user agent.
func NewClient(cfg config.PortalConfig, logger *slog.Logger) *Client {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 15 * time.Second
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = 10 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}

	client := resty.New().SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Cookie != "" {
		client.SetHeader("Cookie", cfg.Cookie)
	}

	return &Client{http: client, cfg: cfg, logger: logger}
}

// OpenCase loads the case page. A missing page or header marker is NotFound, an expired wait is Timeout.
func (c *Client) OpenCase(ctx context.Context, caseID domain.CaseID) (ports.CasePage, error) {
	path, err := c.casePath(c.cfg.CasePath, caseID)
	if err != nil {
		return nil, err
	}

	c.debug("open case", "case", caseID.String(), "path", path)

	lookup, err := c.fetchDocument(ctx, path, c.cfg.NavigationTimeout)
	if err != nil {
		return nil, fmt.Errorf("open case %s: %w", caseID, err)
	}
	if !lookup.Ok() {
		return nil, &domain.NavigationError{CaseID: caseID, State: lookup.State}
	}
	if lookup.Value.Find(caseMarker).Length() == 0 {
		return nil, &domain.NavigationError{CaseID: caseID, State: domain.LookupNotFound}
	}

	return &casePage{client: c, caseID: caseID, doc: lookup.Value}, nil
}

func (c *Client) casePath(prefix string, caseID domain.CaseID) (string, error) {
	year, number, variation, err := caseID.Parts()
	if err != nil {
		return "", err
	}
	return prefix + year + number + "/" + strconv.Itoa(variation) + "/1", nil
}

// fetchDocument GETs path within timeout. 404 and expired waits come back as lookup states.
func (c *Client) fetchDocument(ctx context.Context, path string, timeout time.Duration) (domain.Lookup[*goquery.Document], error) {
	body, lookup, err := c.fetch(ctx, path, timeout)
	if err != nil || !lookup.Ok() {
		return domain.Lookup[*goquery.Document]{State: lookup.State}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body.Body()))
	if err != nil {
		return domain.Lookup[*goquery.Document]{}, fmt.Errorf("parse document: %w", err)
	}
	return domain.Found(doc), nil
}

func (c *Client) fetch(ctx context.Context, path string, timeout time.Duration) (*resty.Response, domain.Lookup[struct{}], error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.R().SetContext(reqCtx).Get(path)
	if err != nil {
		if isTimeout(err) {
			return nil, domain.TimedOut[struct{}](), nil
		}
		return nil, domain.Lookup[struct{}]{}, fmt.Errorf("request %s: %w", path, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return resp, domain.NotFound[struct{}](), nil
	case resp.StatusCode() != http.StatusOK:
		return resp, domain.Lookup[struct{}]{}, fmt.Errorf("portal returned %s for %s", resp.Status(), path)
	}
	return resp, domain.Found(struct{}{}), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
