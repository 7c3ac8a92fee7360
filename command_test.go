package engine

import (
	"testing"

	"github.com/h2x/engine/header"
)

func TestRenderStatusInt(t *testing.T) {
	s, err := renderStatus(200)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "200" {
		t.Fatalf("expected \"200\", got %q", s)
	}
}

func TestRenderStatusIntOutOfRange(t *testing.T) {
	if _, err := renderStatus(99); err == nil {
		t.Fatalf("expected an error for status below 100")
	}
	if _, err := renderStatus(1000); err == nil {
		t.Fatalf("expected an error for status above 999")
	}
}

func TestRenderStatusString(t *testing.T) {
	s, err := renderStatus("404")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s != "404" {
		t.Fatalf("expected \"404\", got %q", s)
	}
}

func TestRenderStatusStringInvalid(t *testing.T) {
	cases := []string{"4xx", "42", "12345"}
	for _, c := range cases {
		if _, err := renderStatus(c); err == nil {
			t.Fatalf("expected an error for status %q", c)
		}
	}
}

func TestRenderStatusUnsupportedType(t *testing.T) {
	if _, err := renderStatus(3.14); err == nil {
		t.Fatalf("expected an error for an unsupported status type")
	}
}

func TestBuildHeaderFieldsStatusFirstAndNamesSorted(t *testing.T) {
	var c *Conn
	h := Header{
		"x-zebra": []string{"z"},
		"x-alpha": []string{"a"},
	}
	fields, err := c.buildHeaderFields(200, h)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[0].Name != header.PseudoStatus || fields[0].Value != "200" {
		t.Fatalf("expected :status first, got %+v", fields[0])
	}
	if fields[1].Name != "x-alpha" || fields[2].Name != "x-zebra" {
		t.Fatalf("expected header names in sorted order, got %q then %q", fields[1].Name, fields[2].Name)
	}
}

func TestBuildHeaderFieldsNeverJoinsMultiValueHeader(t *testing.T) {
	var c *Conn
	h := Header{
		"set-cookie": []string{"a=1", "b=2"},
	}
	fields, err := c.buildHeaderFields(200, h)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var got []string
	for _, f := range fields {
		if f.Name == "set-cookie" {
			got = append(got, f.Value)
		}
	}
	if len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Fatalf("expected two distinct set-cookie fields, got %v", got)
	}
}

func TestBuildHeaderFieldsInvalidStatus(t *testing.T) {
	var c *Conn
	if _, err := c.buildHeaderFields(0, Header{}); err == nil {
		t.Fatalf("expected an error for an invalid status")
	}
}
