package repository

import (
	"context"

	"github.com/Katlearn/cablevision-form/internal/db"
	"github.com/Katlearn/cablevision-form/internal/models"
)

const (
	FilesCollection = "_cv_files"
	BlobBucket      = "cv_files"
)

type FileRepo struct {
	pool *db.Pool
}

func NewFileRepo(pool *db.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

func (r *FileRepo) EnsureIndexes(ctx context.Context) error {
	return r.pool.Get().CreateUniqueIndex(ctx, FilesCollection, "key")
}

func (r *FileRepo) EnsureBucket(ctx context.Context) error {
	return r.pool.Get().CreateBucket(ctx, BlobBucket)
}

func (r *FileRepo) Create(ctx context.Context, f *models.StoredFile) (string, error) {
	doc, err := toDoc(f)
	if err != nil {
		return "", err
	}
	result, err := r.pool.Get().Insert(ctx, FilesCollection, doc)
	if err != nil {
		return "", err
	}
	return extractID(result), nil
}

// FindByKey returns nil without an error when no file has that key.
func (r *FileRepo) FindByKey(ctx context.Context, key string) (*models.StoredFile, error) {
	doc, err := r.pool.Get().FindOne(ctx, FilesCollection, map[string]any{"key": key})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var f models.StoredFile
	if err := fromDoc(doc, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) Delete(ctx context.Context, key string) error {
	return r.pool.Get().Delete(ctx, FilesCollection, map[string]any{"key": key})
}

func (r *FileRepo) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	return r.pool.Get().PutObject(ctx, BlobBucket, key, data, contentType, nil)
}

func (r *FileRepo) GetBlob(ctx context.Context, key string) ([]byte, error) {
	data, _, err := r.pool.Get().GetObject(ctx, BlobBucket, key)
	return data, err
}

func (r *FileRepo) DeleteBlob(ctx context.Context, key string) error {
	return r.pool.Get().DeleteObject(ctx, BlobBucket, key)
}
