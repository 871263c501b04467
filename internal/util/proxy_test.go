package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), target string) *url.URL {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatal(err)
	}
	proxy, err := fn(&http.Request{URL: u})
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	return proxy
}

func TestNewProxyFunc_ExplicitProxies(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "http://sproxy:3128", "")

	if got := proxyFor(t, fn, "http://example.com/doc.pdf"); got == nil || got.Host != "proxy:3128" {
		t.Errorf("Expected http proxy, got %v", got)
	}
	if got := proxyFor(t, fn, "https://example.com/doc.pdf"); got == nil || got.Host != "sproxy:3128" {
		t.Errorf("Expected https proxy, got %v", got)
	}
}

func TestNewProxyFunc_NoProxyBypass(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "", "internal.corp, localhost")

	if got := proxyFor(t, fn, "http://docs.internal.corp/msa.pdf"); got != nil {
		t.Errorf("Expected bypass for no-proxy suffix, got %v", got)
	}
	if got := proxyFor(t, fn, "http://localhost:8080/msa.pdf"); got != nil {
		t.Errorf("Expected bypass for localhost, got %v", got)
	}
	if got := proxyFor(t, fn, "http://example.com/msa.pdf"); got == nil {
		t.Error("Expected proxy for external host")
	}
}
