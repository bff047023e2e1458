package proxy

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// Source yields raw candidate endpoints from an external listing.
// Fetch never reports an error upward: on total failure it returns an
// empty slice, and the pool simply stays below its threshold.
type Source interface {
	Fetch(ctx context.Context) []models.ProxyCandidate
}

// NewSource builds a source for one proxy-list URL. URLs ending in a
// free-proxy-list style page are parsed as an HTML table; everything else
// is treated as a plain "host:port" line list (proxyscrape style).
func NewSource(listURL string) Source {
	f := newListFetcher()
	if strings.Contains(listURL, "free-proxy-list") || strings.Contains(listURL, "sslproxies") {
		return &htmlTableSource{url: listURL, fetcher: f}
	}
	return &lineListSource{url: listURL, fetcher: f}
}

// MultiSource concatenates candidates from several sources.
type MultiSource []Source

func (m MultiSource) Fetch(ctx context.Context) []models.ProxyCandidate {
	var out []models.ProxyCandidate
	for _, s := range m {
		out = append(out, s.Fetch(ctx)...)
	}
	return out
}

// lineListSource parses "host:port" lines, one candidate per line.
type lineListSource struct {
	url     string
	fetcher *listFetcher
}

func (s *lineListSource) Fetch(ctx context.Context) []models.ProxyCandidate {
	body, err := s.fetcher.fetch(ctx, s.url)
	if err != nil {
		slog.Warn("proxy source fetch failed", "url", s.url, "error", err)
		return nil
	}

	protocol := protocolHint(s.url)
	var out []models.ProxyCandidate
	for _, line := range strings.Split(string(body), "\n") {
		host, port, ok := splitHostPort(strings.TrimSpace(line))
		if !ok {
			continue
		}
		out = append(out, models.ProxyCandidate{
			Host:     host,
			Port:     port,
			Protocol: protocol,
			Source:   s.url,
		})
	}
	slog.Debug("proxy source fetched", "url", s.url, "candidates", len(out))
	return out
}

// htmlTableSource parses a free-proxy-list style HTML table where the
// first column is the IP and the second the port.
type htmlTableSource struct {
	url     string
	fetcher *listFetcher
}

func (s *htmlTableSource) Fetch(ctx context.Context) []models.ProxyCandidate {
	body, err := s.fetcher.fetch(ctx, s.url)
	if err != nil {
		slog.Warn("proxy source fetch failed", "url", s.url, "error", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Warn("proxy source parse failed", "url", s.url, "error", err)
		return nil
	}

	var out []models.ProxyCandidate
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		host := strings.TrimSpace(cells.Eq(0).Text())
		port, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil || net.ParseIP(host) == nil {
			return
		}
		out = append(out, models.ProxyCandidate{
			Host:     host,
			Port:     port,
			Protocol: "http",
			Source:   s.url,
		})
	})
	slog.Debug("proxy source fetched", "url", s.url, "candidates", len(out))
	return out
}

// protocolHint extracts the advertised protocol from a proxyscrape-style
// query string ("...&protocol=socks5"). Defaults to "http".
func protocolHint(listURL string) string {
	if u, err := url.Parse(listURL); err == nil {
		if p := u.Query().Get("protocol"); p == "socks5" || p == "socks4" {
			return "socks5"
		}
	}
	return "http"
}

func splitHostPort(line string) (string, int, bool) {
	if line == "" {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(line)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, false
	}
	return host, port, true
}
