package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

type fakeMedia struct {
	err   error
	saved string
}

func (f *fakeMedia) SaveUpload(_ multipart.File, header *multipart.FileHeader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = header.Filename
	return "/uploads/" + header.Filename, nil
}

func uploadRequest(t *testing.T, field string, size int) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "map.png")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{'x'}, size)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveUpload(h *MediaHandler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	r := gin.New()
	r.POST("/upload", h.UploadMedia)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestUploadMedia(t *testing.T) {
	media := &fakeMedia{}
	w, env := serveUpload(NewMediaHandler(media, 1024), uploadRequest(t, "file", 10))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.URL != "/uploads/map.png" {
		t.Fatalf("unexpected data %s", env.Data)
	}
	if media.saved != "map.png" {
		t.Fatalf("file not handed to the store")
	}
}

func TestUploadMediaErrors(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		size   int
		err    error
		status int
		code   response.ErrCode
	}{
		{"missing file", "image", 10, nil, http.StatusBadRequest, response.ErrFileRequired},
		{"body over limit", "file", 1024 + multipartOverhead, nil, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{"unsupported type", "file", 10, fmt.Errorf("%w: text/plain", service.ErrUnsupportedFileType), http.StatusBadRequest, response.ErrUnsupportedFile},
		{"store says too large", "file", 10, service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
		{"disk failure", "file", 10, errBoom, http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMediaHandler(&fakeMedia{err: tc.err}, 1024)
			w, env := serveUpload(h, uploadRequest(t, tc.field, tc.size))
			expectError(t, w, env, tc.status, tc.code)
		})
	}
}
