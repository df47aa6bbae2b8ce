package policy

import "testing"

func TestAllowlist_EmptyAllowsAll(t *testing.T) {
	a := New(nil)

	if !a.Empty() {
		t.Error("Empty() = false for nil host list")
	}
	for _, raw := range []string{
		"http://example.com/data",
		"https://internal.service:9090/metrics",
		"http://127.0.0.1:3000/",
	} {
		if !a.AllowsURL(raw) {
			t.Errorf("AllowsURL(%q) = false with empty allowlist", raw)
		}
	}
}

func TestAllowlist_MemberMatching(t *testing.T) {
	a := New([]string{"example.com", "data.internal"})

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"member allowed", "http://example.com/feed", true},
		{"member with port allowed", "http://data.internal:8080/x", true},
		{"non-member denied", "http://evil.com/feed", false},
		{"subdomain is not a member", "http://api.example.com/feed", false},
		{"case differs", "http://EXAMPLE.com/feed", false},
		{"unparsable url denied", "http://[::1/feed", false},
		{"empty url denied", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.AllowsURL(tt.url); got != tt.want {
				t.Errorf("AllowsURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestAllowlist_AllowsHost(t *testing.T) {
	a := New([]string{"example.com", "", ""})

	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (empty entries dropped)", a.Len())
	}
	if !a.AllowsHost("example.com") {
		t.Error("AllowsHost(example.com) = false, want true")
	}
	if a.AllowsHost("other.com") {
		t.Error("AllowsHost(other.com) = true, want false")
	}
}
