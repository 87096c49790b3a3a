package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Katlearn/cablevision-form/internal/db"
	"github.com/Katlearn/cablevision-form/internal/oxidb/oxidbtest"
	"github.com/Katlearn/cablevision-form/internal/repository"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newService(t *testing.T) (*FileService, *oxidbtest.Server) {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	pool, err := db.NewPool(context.Background(), srv.Addr(), 1, 0)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	svc := NewFileService(repository.NewFileRepo(pool), "secret", "http://files.test/", time.Hour)
	if err := svc.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return svc, srv
}

func tokenOf(t *testing.T, link string) (string, string) {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse %q: %v", link, err)
	}
	return strings.TrimPrefix(u.Path, "/files/"), u.Query().Get("token")
}

func TestStoreAndOpen(t *testing.T) {
	svc, srv := newService(t)
	ctx := context.Background()

	link, f, err := svc.Store(ctx, base64.StdEncoding.EncodeToString(pngHeader), "C:\\scans\\id.png", "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if !strings.HasPrefix(link, "http://files.test/files/"+f.Key+"?token=") {
		t.Fatalf("link = %q", link)
	}
	if f.FileName != "id.png" {
		t.Fatalf("file name = %q", f.FileName)
	}
	if f.ContentType != "image/png" {
		t.Fatalf("content type = %q", f.ContentType)
	}
	if f.Size != int64(len(pngHeader)) || len(f.Checksum) != 64 {
		t.Fatalf("size %d checksum %q", f.Size, f.Checksum)
	}
	if n := len(srv.Objects(repository.BlobBucket)); n != 1 {
		t.Fatalf("%d blobs stored", n)
	}

	key, token := tokenOf(t, link)
	data, got, err := svc.Open(ctx, key, token)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(data) != string(pngHeader) {
		t.Fatal("blob content mismatch")
	}
	if got.Checksum != f.Checksum {
		t.Fatalf("checksum %q != %q", got.Checksum, f.Checksum)
	}
}

func TestStoreKeepsDeclaredType(t *testing.T) {
	svc, _ := newService(t)
	_, f, err := svc.Store(context.Background(), base64.StdEncoding.EncodeToString([]byte("hello")), "a.txt", "application/pdf")
	if err != nil {
		t.Fatal(err)
	}
	if f.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", f.ContentType)
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	if _, _, err := svc.Store(ctx, "!!!", "a", ""); !errors.Is(err, ErrBadEncoding) {
		t.Fatalf("expected ErrBadEncoding, got %v", err)
	}
	if _, _, err := svc.Store(ctx, "", "a", ""); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestStoreRemovesBlobWhenMetadataFails(t *testing.T) {
	svc, srv := newService(t)
	srv.FailNext("insert", "disk full")
	if _, _, err := svc.Store(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")), "a", ""); err == nil {
		t.Fatal("expected error")
	}
	if n := len(srv.Objects(repository.BlobBucket)); n != 0 {
		t.Fatalf("%d orphaned blobs", n)
	}
}

func TestOpenChecksToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	link, _, err := svc.Store(ctx, base64.StdEncoding.EncodeToString([]byte("x")), "a", "")
	if err != nil {
		t.Fatal(err)
	}
	key, token := tokenOf(t, link)

	if _, _, err := svc.Open(ctx, key, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	other, _ := svc.Link("another-key")
	_, otherToken := tokenOf(t, other)
	if _, _, err := svc.Open(ctx, key, otherToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token for another key accepted: %v", err)
	}
	if _, _, err := svc.Open(ctx, "another-key", otherToken); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, _, err := svc.Open(ctx, key, token); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestStoreSanitizesHTML(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	page := `<p onclick="steal()">Bill for <b>May</b></p><script>alert(1)</script>`
	link, f, err := svc.Store(ctx, base64.StdEncoding.EncodeToString([]byte(page)), "bill.html", "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	key, token := tokenOf(t, link)
	data, _, err := svc.Open(ctx, key, token)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := string(data); got != "<p>Bill for <b>May</b></p>" {
		t.Fatalf("stored %q", got)
	}
	if f.Size != int64(len(data)) {
		t.Fatalf("size %d for %d stored bytes", f.Size, len(data))
	}

	_, pdf, err := svc.Store(ctx, base64.StdEncoding.EncodeToString([]byte("<script>")), "a.pdf", "application/pdf")
	if err != nil {
		t.Fatal(err)
	}
	if pdf.Size != int64(len("<script>")) {
		t.Fatalf("non-HTML upload was altered: size %d", pdf.Size)
	}
}

func TestRemove(t *testing.T) {
	svc, srv := newService(t)
	ctx := context.Background()
	link, _, err := svc.Store(ctx, base64.StdEncoding.EncodeToString([]byte("x")), "a", "")
	if err != nil {
		t.Fatal(err)
	}
	key, token := tokenOf(t, link)

	if err := svc.Remove(ctx, key, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := svc.Remove(ctx, key, token); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n := len(srv.Objects(repository.BlobBucket)); n != 0 {
		t.Fatalf("%d blobs left", n)
	}
	if n := len(srv.Docs(repository.FilesCollection)); n != 0 {
		t.Fatalf("%d metadata docs left", n)
	}
	if _, _, err := svc.Open(ctx, key, token); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound after remove, got %v", err)
	}
	if err := svc.Remove(ctx, key, token); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}
