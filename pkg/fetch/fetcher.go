package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"

	"github.com/Sriram-PR/ccf-scraper/pkg/config"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

// drainLimit bounds how much of an unread body is discarded before closing it
const drainLimit = 64 << 10

// PageFetcher retrieves the decoded HTML of a listing page
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// Fetcher issues single GET requests for listing pages. It never retries; a failed page is the caller's to skip.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	log          *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		log:          log,
	}
}

// FetchPage GETs pageURL and returns its body decoded as UTF-8, whatever charset the server declares.
// Ill-formed byte sequences become U+FFFD and a leading byte order mark is dropped.
// Any non-2xx status is an error.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	reqLog := f.log.WithField("url", pageURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, pageURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		reqLog.Debugf("Network error: %v", err)
		return "", err
	}
	defer func() {
		// Drain a bounded remainder so the connection can be reused; an oversized body is abandoned
		io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", utils.NewHTTPStatusError(pageURL, resp.StatusCode)
	}
	reqLog.WithField("status_code", resp.StatusCode).Debug("Successfully fetched")

	reader := io.Reader(resp.Body)
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", utils.ErrResponseBodyRead, pageURL, err)
	}
	if f.maxBodyBytes > 0 && int64(len(raw)) > f.maxBodyBytes {
		return "", fmt.Errorf("%w: %s: body exceeds %d bytes", utils.ErrResponseBodyRead, pageURL, f.maxBodyBytes)
	}

	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: decoding %s as UTF-8: %w", utils.ErrResponseBodyRead, pageURL, err)
	}

	reqLog.WithField("bytes", len(raw)).Debug("Decoded page body")
	return string(decoded), nil
}
