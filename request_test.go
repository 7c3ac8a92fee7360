package engine

import "testing"

func TestBodyLengthFinHasNoBody(t *testing.T) {
	n, hasBody, err := bodyLength(1, true, "100")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if hasBody {
		t.Fatalf("a FIN headers frame must never report a body")
	}
	if n != 0 {
		t.Fatalf("expected length 0, got %d", n)
	}
}

func TestBodyLengthAbsentIsUnknown(t *testing.T) {
	n, hasBody, err := bodyLength(1, false, "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !hasBody {
		t.Fatalf("expected hasBody true when content-length is absent")
	}
	if n != BodyLengthUnknown {
		t.Fatalf("expected BodyLengthUnknown, got %d", n)
	}
}

func TestBodyLengthZeroHasNoBody(t *testing.T) {
	n, hasBody, err := bodyLength(1, false, "0")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if hasBody {
		t.Fatalf("a zero content-length should report no body")
	}
	if n != 0 {
		t.Fatalf("expected length 0, got %d", n)
	}
}

func TestBodyLengthMalformedIsStreamError(t *testing.T) {
	_, _, err := bodyLength(7, false, "not-a-number")
	if err == nil {
		t.Fatalf("expected a stream error for malformed content-length")
	}
	if err.Kind != KindStream {
		t.Fatalf("expected KindStream, got %v", err.Kind)
	}
	if err.StreamID != 7 {
		t.Fatalf("expected StreamID 7, got %d", err.StreamID)
	}
}

func TestSplitAuthority(t *testing.T) {
	cases := []struct {
		in       string
		wantHost string
		wantPort string
	}{
		{"", "", ""},
		{"example.com", "example.com", ""},
		{"example.com:8443", "example.com", "8443"},
	}

	for _, c := range cases {
		host, port := splitAuthority(c.in)
		if host != c.wantHost || port != c.wantPort {
			t.Fatalf("splitAuthority(%q) = (%q, %q), want (%q, %q)", c.in, host, port, c.wantHost, c.wantPort)
		}
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in        string
		wantPath  string
		wantQuery string
	}{
		{"/", "/", ""},
		{"/a?b=c", "/a", "b=c"},
		{"/a?b=c&d=e", "/a", "b=c&d=e"},
	}

	for _, c := range cases {
		path, query := splitPath(c.in)
		if path != c.wantPath || query != c.wantQuery {
			t.Fatalf("splitPath(%q) = (%q, %q), want (%q, %q)", c.in, path, query, c.wantPath, c.wantQuery)
		}
	}
}
