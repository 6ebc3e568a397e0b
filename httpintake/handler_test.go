package httpintake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gobeaver/uploadguard"
	"github.com/gobeaver/uploadguard/driver/memory"
	"github.com/gobeaver/uploadguard/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	jpegBody = padded([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, 256)
	pngBody  = padded([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, 256)
)

func padded(h []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, h)
	return out
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router *gin.Engine
	store  *memory.Adapter
}

func newTestServer(t *testing.T, limit int, opts ...Option) *testServer {
	t.Helper()
	store := memory.New()
	intake := uploadguard.NewIntake(nil,
		uploadguard.WithLimiter(ratelimit.New(ratelimit.Config{Limit: limit})),
		uploadguard.WithLogger(quiet()),
	)
	h := New(uploadguard.NewGuardedStore(store, intake), append([]Option{WithLogger(quiet())}, opts...)...)
	return &testServer{
		router: NewRouter(h, RouterConfig{Logger: quiet()}),
		store:  store,
	}
}

type upload struct {
	filename string
	mimeType string
	content  []byte
	folder   string
	noFile   bool
}

func (s *testServer) post(t *testing.T, u upload, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if u.folder != "" {
		if err := mw.WriteField(FolderField, u.folder); err != nil {
			t.Fatal(err)
		}
	}
	if !u.noFile {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, u.filename))
		h.Set("Content-Type", u.mimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(u.content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "192.0.2.44:51234"
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestUpload_Accepted(t *testing.T) {
	s := newTestServer(t, 10)

	rec := s.post(t, upload{filename: "cat.jpg", mimeType: "image/jpeg", content: jpegBody, folder: "gallery"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Folder != "gallery" || resp.Type != "jpeg" || resp.MIMEType != "image/jpeg" || resp.Size != int64(len(jpegBody)) {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasPrefix(resp.Path, "gallery/") || !strings.HasSuffix(resp.Name, ".jpg") {
		t.Errorf("path = %q name = %q", resp.Path, resp.Name)
	}
	if s.store.FileCount() != 1 {
		t.Errorf("stored %d files", s.store.FileCount())
	}
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		upload     upload
		wantStatus int
		wantReason uploadguard.Reason
	}{
		{
			name:       "blocked extension",
			upload:     upload{filename: "x.php.jpg", mimeType: "image/jpeg", content: jpegBody},
			wantStatus: http.StatusBadRequest,
			wantReason: uploadguard.ReasonUnsafeFilename,
		},
		{
			name:       "missing file",
			upload:     upload{folder: "news", noFile: true},
			wantStatus: http.StatusBadRequest,
			wantReason: uploadguard.ReasonUnsafeFilename,
		},
		{
			name:       "too small",
			upload:     upload{filename: "a.jpg", mimeType: "image/jpeg", content: []byte{0xFF, 0xD8}},
			wantStatus: http.StatusBadRequest,
			wantReason: uploadguard.ReasonBufferTooSmall,
		},
		{
			name:       "unrecognized",
			upload:     upload{filename: "a.jpg", mimeType: "image/jpeg", content: padded([]byte("#!/bin/sh\n"), 64)},
			wantStatus: http.StatusUnsupportedMediaType,
			wantReason: uploadguard.ReasonUnrecognizedType,
		},
		{
			name:       "mime mismatch",
			upload:     upload{filename: "a.pdf", mimeType: "application/pdf", content: pngBody},
			wantStatus: http.StatusUnsupportedMediaType,
			wantReason: uploadguard.ReasonDeclaredTypeMismatch,
		},
		{
			name:       "polyglot",
			upload:     upload{filename: "a.png", mimeType: "image/png", content: append(append([]byte{}, pngBody[:8]...), "\n<?php phpinfo(); ?>"...)},
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: uploadguard.ReasonMaliciousContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 10)
			rec := s.post(t, tt.upload, nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Reason != string(tt.wantReason) || resp.Message != tt.wantReason.Message() {
				t.Errorf("response = %+v", resp)
			}
			if strings.Contains(rec.Body.String(), "php") {
				t.Errorf("response names the rule: %s", rec.Body)
			}
			if s.store.FileCount() != 0 {
				t.Error("rejected upload was stored")
			}
		})
	}
}

func TestUpload_RateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	u := upload{filename: "a.png", mimeType: "image/png", content: pngBody}

	for i := 0; i < 2; i++ {
		if rec := s.post(t, u, nil); rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status %d", i+1, rec.Code)
		}
	}

	rec := s.post(t, u, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestUpload_ForwardedFor(t *testing.T) {
	u := upload{filename: "a.png", mimeType: "image/png", content: pngBody}

	trusting := newTestServer(t, 1, WithTrustForwarded(true))
	trusting.post(t, u, map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})
	if rec := trusting.post(t, u, map[string]string{"X-Forwarded-For": "203.0.113.6"}); rec.Code != http.StatusCreated {
		t.Errorf("distinct forwarded callers share a bucket: %d", rec.Code)
	}

	direct := newTestServer(t, 1)
	direct.post(t, u, map[string]string{"X-Forwarded-For": "203.0.113.5"})
	if rec := direct.post(t, u, map[string]string{"X-Forwarded-For": "203.0.113.6"}); rec.Code != http.StatusTooManyRequests {
		t.Errorf("untrusted header changed the key: %d", rec.Code)
	}
}

func TestUpload_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, 10, WithMaxBodyBytes(1024))

	rec := s.post(t, upload{filename: "a.jpg", mimeType: "image/jpeg", content: padded(jpegBody[:10], 4096)}, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 (body %s)", rec.Code, rec.Body)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader("folder=news"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	want := map[uploadguard.Reason]int{
		uploadguard.ReasonRateLimited:          429,
		uploadguard.ReasonUnsafeFilename:       400,
		uploadguard.ReasonDeclaredSizeExceeded: 413,
		uploadguard.ReasonReadFailed:           400,
		uploadguard.ReasonBufferTooSmall:       400,
		uploadguard.ReasonUnrecognizedType:     415,
		uploadguard.ReasonDeclaredTypeMismatch: 415,
		uploadguard.ReasonMaliciousContent:     422,
		uploadguard.ReasonInternal:             500,
	}
	for _, r := range uploadguard.Reasons {
		if got := StatusFor(r); got != want[r] {
			t.Errorf("StatusFor(%s) = %d, want %d", r, got, want[r])
		}
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := uploadguard.NewMetrics("http_test", reg)
	if err != nil {
		t.Fatal(err)
	}
	intake := uploadguard.NewIntake(nil, uploadguard.WithMetrics(m), uploadguard.WithLogger(quiet()))
	h := New(uploadguard.NewGuardedStore(memory.New(), intake), WithLogger(quiet()))
	router := NewRouter(h, RouterConfig{Gatherer: reg, Logger: quiet()})

	s := &testServer{router: router}
	s.post(t, upload{filename: "a.png", mimeType: "image/png", content: pngBody}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `http_test_verdicts_total{outcome="accepted"`) {
		t.Errorf("/metrics missing the accepted verdict:\n%s", rec.Body)
	}
}
