package filevalidator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewDefault()

	tests := []struct {
		name         string
		content      []byte
		filename     string
		declaredMIME string
		wantType     TypeName
		wantErrType  ValidationErrorType
	}{
		{
			name:         "jpeg",
			content:      padded(jpegHeader, 2048),
			filename:     "photo.jpg",
			declaredMIME: "image/jpeg",
			wantType:     TypeJPEG,
		},
		{
			name:         "pdf",
			content:      padded(pdfHeader, 2048),
			filename:     "report.pdf",
			declaredMIME: "application/pdf",
			wantType:     TypePDF,
		},
		{
			name:         "webp with misleading name",
			content:      padded(webpHeader, 64),
			filename:     "image.jpeg",
			declaredMIME: "image/webp",
			wantType:     TypeWebP,
		},
		{
			name:         "double extension",
			content:      padded(jpegHeader, 64),
			filename:     "shell.php.jpg",
			declaredMIME: "image/jpeg",
			wantErrType:  ErrorTypeFileName,
		},
		{
			name:         "too small",
			content:      []byte{0xFF, 0xD8, 0xFF},
			filename:     "tiny.jpg",
			declaredMIME: "image/jpeg",
			wantErrType:  ErrorTypeTooSmall,
		},
		{
			name:         "unrecognized",
			content:      []byte("plain text that is long enough"),
			filename:     "notes.jpg",
			declaredMIME: "image/jpeg",
			wantErrType:  ErrorTypeUnrecognized,
		},
		{
			name:         "pdf declared for png",
			content:      padded(pngHeader, 64),
			filename:     "doc.pdf",
			declaredMIME: "application/pdf",
			wantErrType:  ErrorTypeMIME,
		},
		{
			name:         "polyglot png",
			content:      append(append([]byte{}, pngHeader...), "\n<?php system($_GET['c']); ?>"...),
			filename:     "avatar.png",
			declaredMIME: "image/png",
			wantErrType:  ErrorTypeContent,
		},
		{
			name:         "oversize image",
			content:      padded(pngHeader, int(5*MB)+1),
			filename:     "huge.png",
			declaredMIME: "image/png",
			wantErrType:  ErrorTypeSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := validator.ValidateBytes(tt.content, tt.filename, tt.declaredMIME)
			if tt.wantErrType != "" {
				if !IsErrorOfType(err, tt.wantErrType) {
					t.Fatalf("ValidateBytes() error = %v, want %s", err, tt.wantErrType)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateBytes() unexpected error = %v", err)
			}
			if sig.Type != tt.wantType {
				t.Errorf("detected %s, want %s", sig.Type, tt.wantType)
			}
		})
	}
}

func TestValidator_PDFCeiling(t *testing.T) {
	validator := NewDefault()
	content := padded(pdfHeader, int(7*MB))

	if _, err := validator.ValidateBytes(content, "big.pdf", "application/pdf"); err != nil {
		t.Errorf("7 MB PDF should fit the PDF ceiling, got %v", err)
	}
	if err := validator.CheckDeclaredSize("image/png", 7*MB); !IsErrorOfType(err, ErrorTypeSize) {
		t.Errorf("7 MB image should exceed the default ceiling, got %v", err)
	}
}

func TestValidator_ValidateReader(t *testing.T) {
	validator := NewDefault()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		content := padded(gif89, 512)
		sig, err := validator.ValidateReader(ctx, bytes.NewReader(content), "anim.gif", "image/gif", int64(len(content)))
		if err != nil {
			t.Fatalf("ValidateReader() error = %v", err)
		}
		if sig.Type != TypeGIF {
			t.Errorf("detected %s, want gif", sig.Type)
		}
	})

	t.Run("declared size over ceiling", func(t *testing.T) {
		_, err := validator.ValidateReader(ctx, strings.NewReader(""), "a.png", "image/png", 6*MB)
		if !IsErrorOfType(err, ErrorTypeSize) {
			t.Errorf("error = %v, want size", err)
		}
	})

	t.Run("body larger than declared", func(t *testing.T) {
		v := NewBuilder().MaxSize(1 * KB).Build()
		content := padded(pngHeader, int(2*KB))
		_, err := v.ValidateReader(ctx, bytes.NewReader(content), "a.png", "image/png", 100)
		if !IsErrorOfType(err, ErrorTypeSize) {
			t.Errorf("error = %v, want size", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := validator.ValidateReader(canceled, bytes.NewReader(jpegHeader), "a.jpg", "image/jpeg", 12)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestReadLimited(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)

	got, err := ReadLimited(bytes.NewReader(data), 100)
	if err != nil || len(got) != 100 {
		t.Errorf("ReadLimited(100) = %d bytes, %v", len(got), err)
	}

	if _, err := ReadLimited(bytes.NewReader(data), 99); !IsErrorOfType(err, ErrorTypeSize) {
		t.Errorf("ReadLimited(99) error = %v, want size", err)
	}

	got, err = ReadLimited(bytes.NewReader(data), 0)
	if err != nil || len(got) != 100 {
		t.Errorf("ReadLimited(0) = %d bytes, %v", len(got), err)
	}
}

func TestValidator_GenerateName(t *testing.T) {
	validator := NewDefault()
	sig, _ := DefaultRegistry().Lookup(TypePNG)

	name, err := validator.GenerateName(sig)
	if err != nil {
		t.Fatalf("GenerateName() error = %v", err)
	}
	if !strings.HasSuffix(name, ".png") || !storedNamePattern.MatchString(name) {
		t.Errorf("GenerateName() = %q", name)
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	v := New(Constraints{})
	c := v.GetConstraints()
	if c.Registry == nil || c.Denylist == nil || c.Folders == nil || c.Scanner == nil || c.Names == nil {
		t.Fatal("New() left a nil constraint")
	}
	if c.Limits != DefaultSizeLimits() {
		t.Errorf("Limits = %+v, want defaults", c.Limits)
	}
}
