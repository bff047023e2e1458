package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
)

// Prober performs a bounded-latency reachability check for one candidate.
// It returns the measured latency on success. The input is untouched; a
// candidate becomes a ProxyRecord only if the probe succeeds.
type Prober interface {
	Probe(ctx context.Context, cand models.ProxyCandidate, timeout time.Duration) (time.Duration, error)
}

// HTTPProber validates candidates by issuing a HEAD request to TargetURL
// through the candidate and timing the full exchange.
type HTTPProber struct {
	// TargetURL is the page requested through the proxy.
	TargetURL string
}

// Probe dials through the candidate with the given timeout and returns the
// wall latency of one request. HTTP candidates are used as a CONNECT proxy;
// SOCKS5 candidates via a socks dialer.
func (p *HTTPProber) Probe(ctx context.Context, cand models.ProxyCandidate, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := transportFor(cand)
	if err != nil {
		return 0, err
	}
	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.TargetURL, nil)
	if err != nil {
		return 0, fmt.Errorf("probe: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", cand.Key(), err)
	}
	resp.Body.Close()

	// Any HTTP response counts as reachable; the proxy relayed traffic.
	return time.Since(start), nil
}

func transportFor(cand models.ProxyCandidate) (*http.Transport, error) {
	addr := cand.Key()
	switch cand.Protocol {
	case "socks5", "socks4":
		dialer, err := xproxy.SOCKS5("tcp", addr, nil, &net.Dialer{})
		if err != nil {
			return nil, fmt.Errorf("probe: socks dialer for %s: %w", addr, err)
		}
		cd, ok := dialer.(xproxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("probe: socks dialer for %s is not context-aware", addr)
		}
		return &http.Transport{
			DialContext: cd.DialContext,
		}, nil
	default:
		proxyURL, err := url.Parse("http://" + addr)
		if err != nil {
			return nil, fmt.Errorf("probe: proxy url for %s: %w", addr, err)
		}
		return &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}, nil
	}
}
