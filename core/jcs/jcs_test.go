package jcs

import "testing"

func TestCanonicalizeJSON(t *testing.T) {
	in := []byte(`{ "root":{"kind":"other"}, "schema_id":"logclean.script" }`)
	want := `{"root":{"kind":"other"},"schema_id":"logclean.script"}`
	out, err := CanonicalizeJSON(in)
	if err != nil {
		t.Fatalf("canonicalize error: %v", err)
	}
	if string(out) != want {
		t.Fatalf("unexpected canonical form: %s", string(out))
	}
}

func TestDigestJCSStable(t *testing.T) {
	da, err := DigestJCS([]byte(`{"a":1,"b":[true,null]}`))
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	db, err := DigestJCS([]byte("{ \"b\" : [true, null],\n \"a\":1 }"))
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	if da != db {
		t.Fatalf("expected same digest for equivalent JSON")
	}
	if len(da) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", da)
	}
}

func TestDigestBytesKnownValue(t *testing.T) {
	if got := DigestBytes(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty digest: %s", got)
	}
}

func TestCanonicalizeJSONInvalid(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
