package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxBodySize caps the robots file read.
const maxBodySize = 512 * 1024

// URL returns the robots file location for root: root with a trailing
// slash inserted if absent, followed by "robots.txt".
func URL(root string) string {
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root + "robots.txt"
}

// Fetch retrieves the robots file body for root.
// Every failure (transport error, non-2xx status, read error) yields an
// empty body so that the crawl proceeds unrestricted.
func Fetch(ctx context.Context, client *http.Client, userAgent, root string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}

	target := URL(root)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		logger.Debug("robots request not built", "url", target, "error", err)
		return ""
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("robots fetch failed", "url", target, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("robots fetch returned non-success status", "url", target, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		logger.Debug("robots body read failed", "url", target, "error", err)
		return ""
	}
	return string(body)
}
