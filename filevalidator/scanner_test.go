package filevalidator

import (
	"bytes"
	"regexp"
	"testing"
)

func TestScanContent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"clean", "IDAT some image bytes", false},
		{"php tag", "<?php system($_GET['c']); ?>", true},
		{"php tag upper", "<?PHP echo 1;", true},
		{"php short echo", "<?= $x ?>", true},
		{"asp", "<% Response.Write(1) %>", true},
		{"script", "<script>alert(1)</script>", true},
		{"script mixed case", "<ScRiPt src=x>", true},
		{"jinja expression", "{{ config.items() }}", true},
		{"jinja statement", "{% for x in y %}", true},
		{"eval", "eval ($code)", true},
		{"shell_exec", "shell_exec('id')", true},
		{"exec", "exec(\"ls\")", true},
		{"passthru", "passthru('id')", true},
		{"proc_open", "proc_open('sh', $d, $p)", true},
		{"assert", "assert($_POST[x])", true},
		{"base64_decode", "base64_decode('ZWNobyAx')", true},
		{"unserialize", "unserialize($data)", true},
		{"pickle", "pickle.loads(blob)", true},
		{"java runtime", "Runtime.getRuntime().exec(cmd)", true},
		{"word containing eval", "medieval (history)", false},
		{"system without call", "filesystem metadata", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte{}, pngHeader...), "\n"+tt.payload...)
			err := ScanContent(data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ScanContent(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			}
			if err != nil && !IsErrorOfType(err, ErrorTypeContent) {
				t.Errorf("error type = %s, want content", GetErrorType(err))
			}
		})
	}
}

func TestScanContent_BoundedPrefix(t *testing.T) {
	marker := []byte("<?php")

	inside := make([]byte, DefaultScanLimit)
	copy(inside[DefaultScanLimit-len(marker):], marker)
	if err := ScanContent(inside); err == nil {
		t.Error("marker ending exactly at the scan limit should be found")
	}

	straddling := make([]byte, DefaultScanLimit+100)
	copy(straddling[DefaultScanLimit-2:], marker)
	if err := ScanContent(straddling); err != nil {
		t.Errorf("marker crossing the scan limit should be ignored, got %v", err)
	}

	beyond := append(make([]byte, DefaultScanLimit), marker...)
	if err := ScanContent(beyond); err != nil {
		t.Errorf("marker past the scan limit should be ignored, got %v", err)
	}
}

func TestNewContentScanner(t *testing.T) {
	s := NewContentScanner(0)
	if s.Limit() != DefaultScanLimit {
		t.Errorf("Limit() = %d, want %d", s.Limit(), DefaultScanLimit)
	}

	custom := NewContentScanner(16, InjectionMarker{Name: "flash", Pattern: regexp.MustCompile(`CWS`)})
	if err := custom.Scan([]byte("<?php")); err != nil {
		t.Errorf("custom markers should replace the defaults, got %v", err)
	}
	if err := custom.Scan([]byte("xxCWSxx")); err == nil {
		t.Error("custom marker not found")
	}
	if err := custom.Scan(append(bytes.Repeat([]byte{0}, 16), "CWS"...)); err != nil {
		t.Errorf("custom limit ignored, got %v", err)
	}
}
