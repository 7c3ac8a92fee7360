package engine

import "testing"

func TestPushAuthorityOmitsDefaultPort(t *testing.T) {
	cases := []struct {
		scheme, host, port, want string
	}{
		{"http", "example.com", "80", "example.com"},
		{"https", "example.com", "443", "example.com"},
		{"http", "example.com", "", "example.com"},
	}
	for _, c := range cases {
		if got := pushAuthority(c.scheme, c.host, c.port); got != c.want {
			t.Fatalf("pushAuthority(%q,%q,%q) = %q, want %q", c.scheme, c.host, c.port, got, c.want)
		}
	}
}

func TestPushAuthorityKeepsNonDefaultPort(t *testing.T) {
	cases := []struct {
		scheme, host, port, want string
	}{
		{"https", "example.com", "8443", "example.com:8443"},
		{"http", "example.com", "8080", "example.com:8080"},
		// a non-default port number on the "wrong" scheme still counts as
		// non-default — e.g. port 80 on https must not be treated as the
		// implicit default.
		{"https", "example.com", "80", "example.com:80"},
	}
	for _, c := range cases {
		if got := pushAuthority(c.scheme, c.host, c.port); got != c.want {
			t.Fatalf("pushAuthority(%q,%q,%q) = %q, want %q", c.scheme, c.host, c.port, got, c.want)
		}
	}
}

func TestPushPathWithAndWithoutQuery(t *testing.T) {
	if got := pushPath("/style.css", ""); got != "/style.css" {
		t.Fatalf("expected bare path, got %q", got)
	}
	if got := pushPath("/search", "q=go"); got != "/search?q=go" {
		t.Fatalf("expected path with query, got %q", got)
	}
}
