package uploadguard

import (
	"errors"
	"strings"
	"testing"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		algorithm ChecksumAlgorithm
		want      string
	}{
		{ChecksumMD5, "900150983cd24fb0d6963f7d28e17f72"},
		{ChecksumSHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{ChecksumSHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{ChecksumCRC32, "352441c2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			got, err := CalculateChecksum(strings.NewReader("abc"), tt.algorithm)
			if err != nil {
				t.Fatalf("CalculateChecksum() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateChecksum() = %s, want %s", got, tt.want)
			}

			fromBytes, err := ChecksumBytes([]byte("abc"), tt.algorithm)
			if err != nil || fromBytes != got {
				t.Errorf("ChecksumBytes() = %s, %v", fromBytes, err)
			}
		})
	}
}

func TestChecksumXXHash(t *testing.T) {
	a, _ := ChecksumBytes([]byte("abc"), ChecksumXXHash)
	b, _ := ChecksumBytes([]byte("abd"), ChecksumXXHash)
	if len(a) != 16 {
		t.Errorf("xxhash hex length = %d, want 16", len(a))
	}
	if a == b {
		t.Error("different input, same xxhash")
	}
}

func TestParseChecksumAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    ChecksumAlgorithm
		wantErr bool
	}{
		{"", ChecksumXXHash, false},
		{"xxhash", ChecksumXXHash, false},
		{" SHA256 ", ChecksumSHA256, false},
		{"crc32", ChecksumCRC32, false},
		{"blake3", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChecksumAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChecksumAlgorithm(%q) error = %v", tt.in, err)
			continue
		}
		if err != nil && !errors.Is(err, ErrNotSupported) {
			t.Errorf("error %v does not wrap ErrNotSupported", err)
		}
		if got != tt.want {
			t.Errorf("ParseChecksumAlgorithm(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
