package checksum

import "testing"

func TestSum_EmptyBody(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Body(""); got != want {
		t.Fatalf("Body(\"\") = %s, want %s", got, want)
	}
}

func TestSum_ChangesWithBody(t *testing.T) {
	if Body("milk") == Body("milk\n") {
		t.Fatal("trailing newline should change the checksum")
	}
	if Body("milk") != Sum([]byte("milk")) {
		t.Fatal("Body and Sum disagree")
	}
}

func TestETag(t *testing.T) {
	if got := ETag("abc"); got != `"abc"` {
		t.Fatalf("ETag = %s", got)
	}
}
