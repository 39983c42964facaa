package linkage

import "testing"

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name      string
		accession string
		inventory string
		expected  string
	}{
		{"plain", "ACC123", "INV45", "ACC123/INV45"},
		{"leading zeros preserved", "007", "0042", "007/0042"},
		{"whitespace trimmed", "  ACC123 ", "\tINV45\n", "ACC123/INV45"},
		{"empty accession", "", "INV45", "/INV45"},
		{"empty inventory", "ACC123", "", "ACC123/"},
		{"both empty", "", "", ""},
		{"separator inside field kept", "A/B", "1", "A/B/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveKey(tt.accession, tt.inventory); got != tt.expected {
				t.Errorf("DeriveKey(%q, %q) = %q, want %q", tt.accession, tt.inventory, got, tt.expected)
			}
		})
	}
}

func TestDeriveKey_LeadingZerosDistinct(t *testing.T) {
	if DeriveKey("ACC", "007") == DeriveKey("ACC", "7") {
		t.Error("inventory numbers 007 and 7 must derive different keys")
	}
}

func TestKeyFromPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
		ok       bool
	}{
		{"basic", "ACC123_INV45.jpg", "ACC123/INV45", true},
		{"nested path", "/archive/scans/ACC123_INV45.png", "ACC123/INV45", true},
		{"first underscore splits", "ACC_INV_45.jpg", "ACC/INV_45", true},
		{"no underscore", "photo.jpg", "", false},
		{"empty accession", "_INV45.jpg", "", false},
		{"empty inventory", "ACC123_.jpg", "", false},
		{"no extension", "ACC123_INV45", "ACC123/INV45", true},
		{"leading zeros", "0001_007.tif", "0001/007", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyFromPath(tt.path)
			if ok != tt.ok {
				t.Fatalf("KeyFromPath(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("KeyFromPath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
