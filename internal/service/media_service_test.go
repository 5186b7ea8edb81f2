package service

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stemsi/exstem-quiz/internal/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// uploadFile builds a multipart upload the way a browser would send it.
func uploadFile(t *testing.T, contentType string, body []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="diagram"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(body)
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("FormFile: %v", err)
	}
	t.Cleanup(func() { file.Close() })
	return file, header
}

func TestMediaServiceSaveUpload(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(&config.Config{UploadDir: dir, MaxUploadBytes: 1024})

	file, header := uploadFile(t, "image/png", pngHeader)
	url, err := svc.SaveUpload(file, header)
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	saved, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(saved, pngHeader) {
		t.Fatal("saved content differs from upload")
	}
}

func TestMediaServiceRejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        error
	}{
		{name: "declared type not allowed", contentType: "application/pdf", body: []byte("%PDF-1.4"), want: ErrUnsupportedFileType},
		{name: "content does not match", contentType: "image/png", body: []byte("<html><script>"), want: ErrUnsupportedFileType},
		{name: "too large", contentType: "image/png", body: append(append([]byte{}, pngHeader...), make([]byte, 2048)...), want: ErrFileTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := NewMediaService(&config.Config{UploadDir: dir, MaxUploadBytes: 1024})

			file, header := uploadFile(t, tc.contentType, tc.body)
			if _, err := svc.SaveUpload(file, header); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Fatalf("rejected uploads must not leave files, found %d", len(entries))
			}
		})
	}
}
