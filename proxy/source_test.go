package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLineListSource_ParsesHostPortLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("10.0.0.1:8080\n\n10.0.0.2:3128\nnot a proxy\n10.0.0.3:99999\n"))
	}))
	defer srv.Close()

	src := &lineListSource{url: srv.URL, fetcher: newListFetcher()}
	got := src.Fetch(context.Background())

	if len(got) != 2 {
		t.Fatalf("parsed %d candidates, want 2", len(got))
	}
	if got[0].Key() != "10.0.0.1:8080" || got[1].Key() != "10.0.0.2:3128" {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestLineListSource_FailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := &lineListSource{url: srv.URL, fetcher: newListFetcher()}
	if got := src.Fetch(context.Background()); len(got) != 0 {
		t.Errorf("failed fetch should yield no candidates, got %d", len(got))
	}
}

func TestHTMLTableSource_ParsesTable(t *testing.T) {
	const page = `<html><body><table>
		<thead><tr><th>IP</th><th>Port</th></tr></thead>
		<tbody>
			<tr><td>10.0.0.1</td><td>8080</td><td>US</td></tr>
			<tr><td>10.0.0.2</td><td>3128</td><td>DE</td></tr>
			<tr><td>garbage</td><td>80</td></tr>
			<tr><td>10.0.0.3</td><td>abc</td></tr>
		</tbody>
	</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	src := &htmlTableSource{url: srv.URL, fetcher: newListFetcher()}
	got := src.Fetch(context.Background())

	if len(got) != 2 {
		t.Fatalf("parsed %d candidates, want 2", len(got))
	}
	if got[0].Key() != "10.0.0.1:8080" || got[1].Key() != "10.0.0.2:3128" {
		t.Errorf("unexpected candidates: %v", got)
	}
	if got[0].Protocol != "http" {
		t.Errorf("protocol = %q, want http", got[0].Protocol)
	}
}

func TestMultiSource_Concatenates(t *testing.T) {
	a := &fakeSource{candidates: candidates(2)}
	b := &fakeSource{candidates: candidates(3)}
	got := MultiSource{a, b}.Fetch(context.Background())
	if len(got) != 5 {
		t.Errorf("MultiSource yielded %d, want 5", len(got))
	}
}

func TestProtocolHint(t *testing.T) {
	cases := map[string]string{
		"https://api.proxyscrape.com/v2/?request=displayproxies&protocol=socks5": "socks5",
		"https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http":   "http",
		"https://example.com/list.txt": "http",
	}
	for in, want := range cases {
		if got := protocolHint(in); got != want {
			t.Errorf("protocolHint(%q) = %q, want %q", in, got, want)
		}
	}
}
