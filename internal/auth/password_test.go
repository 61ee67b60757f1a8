package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("reviewme456")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyPassword("reviewme456", hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Fatalf("did not expect wrong password to verify")
	}
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("tiny"); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
}

func TestVerifyPasswordRejectsBlankInput(t *testing.T) {
	t.Parallel()

	if VerifyPassword("", "some-hash") {
		t.Fatalf("did not expect blank password to verify")
	}
	if VerifyPassword("secret", " ") {
		t.Fatalf("did not expect blank hash to verify")
	}
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	if got := NormalizeUsername(" Reviewer "); got != "reviewer" {
		t.Fatalf("unexpected normalized username: %q", got)
	}
}
