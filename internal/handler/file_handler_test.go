package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Katlearn/cablevision-form/internal/db"
	"github.com/Katlearn/cablevision-form/internal/oxidb/oxidbtest"
	"github.com/Katlearn/cablevision-form/internal/repository"
	"github.com/Katlearn/cablevision-form/internal/service"
)

func newFileMux(t *testing.T) (*chi.Mux, *db.Pool) {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	pool, err := db.NewPool(context.Background(), srv.Addr(), 1, 0)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	svc := service.NewFileService(repository.NewFileRepo(pool), "secret", "http://example.test", time.Hour)
	if err := svc.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	h := NewFileHandler(svc)
	mux := chi.NewRouter()
	mux.Post("/files", h.Upload)
	mux.Get("/files/{key}", h.Download)
	mux.Delete("/files/{key}", h.Delete)
	return mux, pool
}

func uploadFile(t *testing.T, mux *chi.Mux, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/files", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestFileUploadAndDownload(t *testing.T) {
	mux, _ := newFileMux(t)
	content := []byte("%PDF-1.4 electric bill")

	rec := uploadFile(t, mux, url.Values{
		"file":     {base64.StdEncoding.EncodeToString(content)},
		"fileName": {"bill.pdf"},
		"mimeType": {"application/pdf"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		FileURL string `json:"fileUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(body.FileURL)
	if err != nil || u.Host != "example.test" || u.Query().Get("token") == "" {
		t.Fatalf("fileUrl %q", body.FileURL)
	}

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	if get.Code != http.StatusOK {
		t.Fatalf("download status %d", get.Code)
	}
	if get.Body.String() != string(content) {
		t.Fatalf("body %q", get.Body.String())
	}
	if ct := get.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q", ct)
	}
	if cd := get.Header().Get("Content-Disposition"); cd != `inline; filename=bill.pdf` {
		t.Fatalf("content disposition %q", cd)
	}
	etag := get.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, u.RequestURI(), nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	mux.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Fatalf("conditional status %d", cached.Code)
	}

	forged := httptest.NewRecorder()
	mux.ServeHTTP(forged, httptest.NewRequest(http.MethodGet, u.Path+"?token=forged", nil))
	if forged.Code != http.StatusForbidden {
		t.Fatalf("forged token status %d", forged.Code)
	}
}

func TestFileDelete(t *testing.T) {
	mux, _ := newFileMux(t)
	rec := uploadFile(t, mux, url.Values{"file": {base64.StdEncoding.EncodeToString([]byte("id card"))}, "fileName": {"id.txt"}})
	var body struct {
		FileURL string `json:"fileUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse(body.FileURL)

	for _, tc := range []struct {
		target string
		code   int
	}{
		{u.Path + "?token=forged", http.StatusForbidden},
		{u.RequestURI(), http.StatusOK},
		{u.RequestURI(), http.StatusNotFound},
	} {
		del := httptest.NewRecorder()
		mux.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, tc.target, nil))
		if del.Code != tc.code {
			t.Fatalf("DELETE %s: status %d, want %d", tc.target, del.Code, tc.code)
		}
	}

	get := httptest.NewRecorder()
	mux.ServeHTTP(get, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
	if get.Code != http.StatusNotFound {
		t.Fatalf("download after delete: status %d", get.Code)
	}
}

func TestFileUploadRejectsBadBase64(t *testing.T) {
	mux, _ := newFileMux(t)
	rec := uploadFile(t, mux, url.Values{"file": {"***"}, "fileName": {"x"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	_, pool := newFileMux(t)
	for _, tc := range []struct {
		name  string
		store Pinger
		code  int
	}{
		{"no file host", nil, http.StatusOK},
		{"healthy store", pool, http.StatusOK},
		{"broken store", failingPinger{}, http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(func() int { return 3 }, tc.store)
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.code {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			var body map[string]any
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["sessions"] != float64(3) {
				t.Fatalf("sessions = %v", body["sessions"])
			}
		})
	}
}
