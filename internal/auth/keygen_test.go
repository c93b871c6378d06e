package auth

import (
	"strings"
	"testing"
)

func TestAccessKeyID_Format(t *testing.T) {
	id, err := AccessKeyID("live")
	if err != nil {
		t.Fatalf("AccessKeyID: %v", err)
	}
	if !strings.HasPrefix(id, "ak_live_") {
		t.Errorf("id = %s, want ak_live_ prefix", id)
	}
	// 24 random bytes encode to 32 base64url characters.
	if got := len(strings.TrimPrefix(id, "ak_live_")); got != 32 {
		t.Errorf("random part length = %d, want 32", got)
	}
}

func TestAccessKeySecret_Format(t *testing.T) {
	secret, err := AccessKeySecret("test")
	if err != nil {
		t.Fatalf("AccessKeySecret: %v", err)
	}
	if !strings.HasPrefix(secret, "sk_test_") {
		t.Errorf("secret = %s, want sk_test_ prefix", secret)
	}
	// 36 random bytes encode to 48 base64url characters.
	if got := len(strings.TrimPrefix(secret, "sk_test_")); got != 48 {
		t.Errorf("random part length = %d, want 48", got)
	}
}

func TestRandomKey_URLSafe(t *testing.T) {
	key, err := RandomKey(32)
	if err != nil {
		t.Fatalf("RandomKey: %v", err)
	}
	if strings.ContainsAny(key, "+/=") {
		t.Errorf("key %s contains non-URL-safe or padding characters", key)
	}
}

func TestRandomKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := RandomKey(24)
		if err != nil {
			t.Fatalf("RandomKey: %v", err)
		}
		if seen[key] {
			t.Fatal("duplicate key generated")
		}
		seen[key] = true
	}
}

func TestVerificationToken(t *testing.T) {
	tok, err := VerificationToken()
	if err != nil {
		t.Fatalf("VerificationToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(tok))
	}
}
