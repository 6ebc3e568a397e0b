package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobeaver/uploadguard"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "uploads")
	a, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(a.Root()); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestWriteReadStat(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	err := a.Write(ctx, "news/1718000000123_abababababababab.jpg", strings.NewReader("\xFF\xD8\xFFjpeg"),
		uploadguard.WithContentType("image/jpeg"),
		uploadguard.WithMetadata(map[string]string{uploadguard.MetadataChecksum: "deadbeef"}),
	)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	onDisk := filepath.Join(a.Root(), "news", "1718000000123_abababababababab.jpg")
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	rc, err := a.Read(ctx, "news/1718000000123_abababababababab.jpg")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "\xFF\xD8\xFFjpeg" {
		t.Errorf("Read() = %q", data)
	}

	info, err := a.Stat(ctx, "news/1718000000123_abababababababab.jpg")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 7 || info.ContentType != "image/jpeg" || info.Metadata[uploadguard.MetadataChecksum] != "deadbeef" {
		t.Errorf("Stat() = %+v", info)
	}

	exists, err := a.FileExists(ctx, "news/1718000000123_abababababababab.jpg")
	if err != nil || !exists {
		t.Errorf("FileExists() = %v, %v", exists, err)
	}
	exists, err = a.FileExists(ctx, "news")
	if err != nil || exists {
		t.Errorf("FileExists(dir) = %v, %v", exists, err)
	}
}

func TestWrite_Overwrite(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	if err := a.Write(ctx, "a.png", strings.NewReader("one")); err != nil {
		t.Fatal(err)
	}
	if err := a.Write(ctx, "a.png", strings.NewReader("two")); !uploadguard.IsExist(err) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	if err := a.Write(ctx, "a.png", strings.NewReader("three"), uploadguard.WithOverwrite(true)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
}

func TestPathsStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	for _, p := range []string{"../escape.jpg", "news/../../escape.jpg", "..\\escape.jpg", ".meta/x.json", ""} {
		if err := a.Write(ctx, p, strings.NewReader("x")); !errors.Is(err, uploadguard.ErrNotAllowed) {
			t.Errorf("Write(%q) error = %v, want ErrNotAllowed", p, err)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	_ = a.Write(ctx, "team/x.gif", strings.NewReader("GIF89a"), uploadguard.WithContentType("image/gif"))
	if err := a.Delete(ctx, "team/x.gif"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := a.Stat(ctx, "team/x.gif"); !uploadguard.IsNotExist(err) {
		t.Errorf("Stat() after delete error = %v", err)
	}
	if _, err := os.Stat(a.sidecarPath("team/x.gif")); !os.IsNotExist(err) {
		t.Errorf("sidecar left behind: %v", err)
	}
	if err := a.Delete(ctx, "team/x.gif"); !uploadguard.IsNotExist(err) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestMatch(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	for _, p := range []string{"news/1.jpg", "news/2.png", "gallery/3.jpg"} {
		if err := a.Write(ctx, p, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	files, err := a.Match(ctx, "*/*.jpg")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Path)
	}
	if strings.Join(got, ",") != "gallery/3.jpg,news/1.jpg" {
		t.Errorf("Match() = %v", got)
	}

	all, err := a.Match(ctx, "**")
	if err != nil {
		t.Fatalf("Match(**) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Match(**) returned %d files, sidecars must be hidden", len(all))
	}
}

func TestChecksum(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	_ = a.Write(ctx, "doc.pdf", strings.NewReader("%PDF-1.4"))

	got, err := a.Checksum(ctx, "doc.pdf", uploadguard.ChecksumXXHash)
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	want, _ := uploadguard.ChecksumBytes([]byte("%PDF-1.4"), uploadguard.ChecksumXXHash)
	if got != want {
		t.Errorf("Checksum() = %s, want %s", got, want)
	}
}
