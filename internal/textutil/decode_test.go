package textutil

import (
	"errors"
	"testing"
)

func TestDecodeBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain ascii", []byte("Hello world."), "Hello world."},
		{"utf-8", []byte("Grüße, 世界"), "Grüße, 世界"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "Hi"...), "Hi"},
		{"utf-16 le bom", []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}, "Hi"},
		{"utf-16 be bom", []byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}, "Hi"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBytes(tt.in)
			if err != nil {
				t.Fatalf("DecodeBytes() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeBytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBytes_NotText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"invalid utf-8", []byte{0xC3, 0x28, 'a'}},
		{"nul bytes", []byte("PK\x03\x04\x00\x00binary")},
		{"odd utf-16", []byte{0xFF, 0xFE, 'H'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(tt.in)
			if err == nil {
				t.Fatal("DecodeBytes() should fail")
			}
			if !errors.Is(err, ErrNotText) {
				t.Errorf("error = %v, want ErrNotText", err)
			}
		})
	}
}
