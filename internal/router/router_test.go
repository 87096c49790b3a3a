package router

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/handler"
	"github.com/Katlearn/cablevision-form/internal/models"
	"github.com/Katlearn/cablevision-form/internal/session"
	"github.com/Katlearn/cablevision-form/internal/signature"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, models.Record) error { return nil }

func newHandlers(t *testing.T) Handlers {
	t.Helper()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	factory := func() (*form.Controller, *signature.Canvas, error) {
		canvas := signature.NewCanvas(100, 50)
		ctrl, err := form.New(form.Options{Signature: canvas, Mailer: nopMailer{}})
		return ctrl, canvas, err
	}
	store := session.NewStore(time.Minute, factory)
	return Handlers{
		Form:     handler.NewFormHandler(factory, false, false, 100, 50),
		Sessions: handler.NewSessionHandler(store),
		Health:   handler.NewHealthHandler(store.Count, nil),
	}
}

func TestRoutes(t *testing.T) {
	r := New([]string{"*"}, newHandlers(t))

	for _, tc := range []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodPost, "/api/v1/sessions", http.StatusCreated},
		{http.MethodGet, "/api/v1/sessions/missing", http.StatusNotFound},
		{http.MethodPost, "/files", http.StatusNotFound},
		{http.MethodGet, "/files/abc", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.code {
			t.Errorf("%s %s: status %d, want %d", tc.method, tc.path, rec.Code, tc.code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	r := New([]string{"https://apply.example.com"}, newHandlers(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://apply.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://apply.example.com" {
		t.Fatalf("allow origin %q", got)
	}
}
