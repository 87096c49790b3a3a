package service

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/blake2b"

	"github.com/Katlearn/cablevision-form/internal/auth"
	"github.com/Katlearn/cablevision-form/internal/models"
	"github.com/Katlearn/cablevision-form/internal/oxidb"
	"github.com/Katlearn/cablevision-form/internal/repository"
)

var (
	ErrEmptyFile    = errors.New("file data is empty")
	ErrBadEncoding  = errors.New("file data is not valid base64")
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidToken = errors.New("invalid or expired file link")
)

type FileService struct {
	files   *repository.FileRepo
	secret  string
	baseURL string
	linkTTL time.Duration
}

func NewFileService(files *repository.FileRepo, secret, baseURL string, linkTTL time.Duration) *FileService {
	return &FileService{
		files:   files,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		linkTTL: linkTTL,
	}
}

// Store decodes a base64 upload, keeps it as a blob and returns a signed
// public URL for it.
func (s *FileService) Store(ctx context.Context, encoded, fileName, contentType string) (string, *models.StoredFile, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	if len(data) == 0 {
		return "", nil, ErrEmptyFile
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if isHTML(contentType) {
		data = documentPolicy().SanitizeBytes(data)
	}
	fileName = path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if fileName == "." || fileName == "/" {
		fileName = "upload"
	}

	sum := blake2b.Sum256(data)
	key := uuid.NewString()

	if err := s.files.PutBlob(ctx, key, data, contentType); err != nil {
		return "", nil, fmt.Errorf("store blob: %w", err)
	}

	f := &models.StoredFile{
		Key:         key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.files.Create(ctx, f)
	if err != nil {
		if derr := s.files.DeleteBlob(ctx, key); derr != nil {
			log.Printf("Warning: file host: orphaned blob %s: %v", key, derr)
		}
		return "", nil, fmt.Errorf("record file: %w", err)
	}
	f.ID = id

	link, err := s.Link(key)
	if err != nil {
		return "", nil, err
	}
	return link, f, nil
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// documentPolicy strips scripts and event handlers from HTML uploads, which
// are served back inline from this host.
func documentPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
	})
	return policy
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// Link builds the signed URL under which key is served.
func (s *FileService) Link(key string) (string, error) {
	token, err := auth.GenerateFileToken(s.secret, key, s.linkTTL)
	if err != nil {
		return "", fmt.Errorf("sign file link: %w", err)
	}
	return fmt.Sprintf("%s/files/%s?token=%s", s.baseURL, url.PathEscape(key), url.QueryEscape(token)), nil
}

// Open verifies token for key and returns the stored bytes.
func (s *FileService) Open(ctx context.Context, key, token string) ([]byte, *models.StoredFile, error) {
	if _, err := auth.ValidateFileToken(s.secret, key, token); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	f, err := s.files.FindByKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, ErrFileNotFound
	}
	data, err := s.files.GetBlob(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("load blob: %w", err)
	}
	return data, f, nil
}

// Remove deletes the blob and its metadata. token must grant access to key.
func (s *FileService) Remove(ctx context.Context, key, token string) error {
	if _, err := auth.ValidateFileToken(s.secret, key, token); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	f, err := s.files.FindByKey(ctx, key)
	if err != nil {
		return err
	}
	if f == nil {
		return ErrFileNotFound
	}
	if err := s.files.DeleteBlob(ctx, key); err != nil && !oxidb.IsNotFound(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return s.files.Delete(ctx, key)
}

// Prepare creates the collection index and blob bucket.
func (s *FileService) Prepare(ctx context.Context) error {
	if err := s.files.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if err := s.files.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
