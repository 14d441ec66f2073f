package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	hash := func(s string) string {
		h := sha256.Sum256([]byte(s))
		return hex.EncodeToString(h[:])
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "admin", want: "admin"},
		{name: "at sign and colon", input: "admin@host:8443", want: "admin_host_8443"},
		{name: "dots replaced", input: "a.b", want: "a_b"},
		{name: "url is hashed", input: "admin@https://192.168.1.1", want: hash("admin@https://192.168.1.1")},
		{name: "traversal is hashed", input: "../../etc/passwd", want: hash("../../etc/passwd")},
		{name: "backslash is hashed", input: `a\b`, want: hash(`a\b`)},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeKey(tt.input); got != tt.want {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name string
		s    string
		subs []string
		want bool
	}{
		{name: "match", s: "Surfshark-VPN", subs: []string{"nordvpn", "surfshark"}, want: true},
		{name: "case-insensitive", s: "permission DENIED", subs: []string{"denied"}, want: true},
		{name: "no match", s: "Home LAN", subs: []string{"vpn", "wireguard"}, want: false},
		{name: "no substrings", s: "anything", subs: nil, want: false},
		{name: "empty s", s: "", subs: []string{"vpn"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsAny(tt.s, tt.subs...); got != tt.want {
				t.Errorf("ContainsAny(%q, %v) = %v, want %v", tt.s, tt.subs, got, tt.want)
			}
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "abc123456xyz", want: "abc1****6xyz"},
		{input: "12345678", want: "****"},
		{input: "", want: "****"},
	}

	for _, tt := range tests {
		if got := Mask(tt.input); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
