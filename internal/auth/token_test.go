package auth

import (
	"testing"
	"time"
)

func TestNewToken_DerivedExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tok := NewToken("hdr.payload.sig", "refresh", 1800, "Bearer", issued)

	want := issued.Add(1800 * time.Second)
	if !tok.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}
}

func TestNewToken_Defaults(t *testing.T) {
	issued := time.Now()

	tok := NewToken("hdr.payload.sig", "", 0, "", issued)

	if tok.ExpiresIn != DefaultExpiresIn {
		t.Errorf("ExpiresIn = %d, want default %d", tok.ExpiresIn, DefaultExpiresIn)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want %q", tok.TokenType, "Bearer")
	}
	if !tok.ExpiresAt.Equal(issued.Add(DefaultExpiresIn * time.Second)) {
		t.Errorf("ExpiresAt = %v not derived from default ExpiresIn", tok.ExpiresAt)
	}
}

func TestToken_ExpiredAt(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := NewToken("hdr.payload.sig", "", 60, "Bearer", issued)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "before expiry", at: issued.Add(30 * time.Second), want: false},
		{name: "exactly at expiry", at: issued.Add(60 * time.Second), want: true},
		{name: "after expiry", at: issued.Add(time.Hour), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tok.ExpiredAt(tt.at); got != tt.want {
				t.Errorf("ExpiredAt(%v) = %t, want %t", tt.at, got, tt.want)
			}
		})
	}
}

func TestCreateAuthenticatedHeaders(t *testing.T) {
	headers := CreateAuthenticatedHeaders("some-token")

	if got := headers["Authorization"]; got != "Bearer some-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer some-token")
	}
	if got := headers["Content-Type"]; got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}
}

func TestLooksLikeJWT(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "three segments", token: "aaa.bbb.ccc", want: true},
		{name: "two segments", token: "aaa.bbb", want: false},
		{name: "four segments", token: "a.b.c.d", want: false},
		{name: "empty segment", token: "a..c", want: false},
		{name: "empty string", token: "", want: false},
		{name: "no dots", token: "opaque", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeJWT(tt.token); got != tt.want {
				t.Errorf("looksLikeJWT(%q) = %t, want %t", tt.token, got, tt.want)
			}
		})
	}
}
