package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username: "  alice  ",
		Email:    " alice@example.com ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := LoginRequest{
		Username: "bob<script>alert('x')</script>",
		Password: "password123",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Username, "&lt;script&gt;")
	assert.NotContains(t, req.Username, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	code := "  NF1A2B  "
	req := RegisterRequest{
		Username:     "bob",
		Email:        "bob@example.com",
		Password:     "password123",
		ReferralCode: &code,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "NF1A2B", *req.ReferralCode)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := RegisterRequest{
		Username:     "carol",
		Email:        "carol@example.com",
		Password:     "password123",
		ReferralCode: nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.ReferralCode)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"infra-001",
		"USDC",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"infra 001",   // space
		"infra<001>",  // angle brackets
		"asset;DROP",  // semicolon
		"",            // empty
		"hello world", // space
		"infra\n001",  // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("PREMIUM")
	assert.True(t, ok)
	assert.Equal(t, "PREMIUM", tier.String())

	_, ok = ParseTier("GOLD")
	assert.False(t, ok)
}
