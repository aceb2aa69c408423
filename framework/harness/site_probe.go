package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// SiteInfo is what the harness learned about the translator page before opening it in a browser.
type SiteInfo struct {
	URL        string
	StatusCode int
	Title      string
	Server     string
}

var titleRegex = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`) //nolint:gochecknoglobals

// probeSite checks that the page answers plain HTTP requests, retrying until timeout. This gives
// a clear error for an unreachable site before a browser is even started.
func probeSite(ctx context.Context, url string, timeout time.Duration, output io.Writer) (SiteInfo, error) {
	_, _ = fmt.Fprintf(output, "Connecting to translator page at %s", url)

	client := &http.Client{Timeout: timeout}
	deadline := time.Now().Add(timeout)
	for {
		_, _ = fmt.Fprint(output, ".")
		info, err := fetchSiteInfo(ctx, client, url)
		if err == nil {
			_, _ = fmt.Fprintln(output)
			if info.StatusCode >= 400 {
				return info, fmt.Errorf("page returned status code %d", info.StatusCode)
			}
			if info.Title != "" {
				_, _ = fmt.Fprintf(output, "Page title: %s\n", info.Title)
			}
			return info, nil
		}
		if !time.Now().Before(deadline) {
			_, _ = fmt.Fprintln(output)
			return SiteInfo{URL: url}, fmt.Errorf("timed out, result of last request was: %w", err)
		}
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(output)
			return SiteInfo{URL: url}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func fetchSiteInfo(ctx context.Context, client *http.Client, url string) (SiteInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SiteInfo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return SiteInfo{}, err
	}
	defer resp.Body.Close() //nolint:errcheck
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	info := SiteInfo{
		URL:        url,
		StatusCode: resp.StatusCode,
		Server:     resp.Header.Get("Server"),
	}
	if m := titleRegex.FindSubmatch(body); m != nil {
		info.Title = strings.TrimSpace(string(m[1]))
	}
	return info, nil
}
