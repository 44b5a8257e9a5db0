package utils

import "testing"

func TestGetGravatarURL(t *testing.T) {
	// hash of "alice@example.com"
	want := "https://www.gravatar.com/avatar/c160f8cc69a4f0bf2b0362752353d060?s=200&d=mp"

	if got := GetGravatarURL("alice@example.com", 200); got != want {
		t.Errorf("GetGravatarURL() = %q, want %q", got, want)
	}
	// normalization: case and surrounding whitespace do not change the hash
	if got := GetGravatarURL("  Alice@Example.COM ", 200); got != want {
		t.Errorf("normalized GetGravatarURL() = %q, want %q", got, want)
	}
	// non-positive size falls back to the default
	if got := GetGravatarURL("alice@example.com", 0); got != want {
		t.Errorf("default size GetGravatarURL() = %q, want %q", got, want)
	}
}
