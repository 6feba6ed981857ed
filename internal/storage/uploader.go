package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

const defaultContentType = "application/octet-stream"

// DatasetUploader stores uploaded dataset files in an ObjectStorage.
// It satisfies store.Uploader and store.Remover.
type DatasetUploader struct {
	storage ObjectStorage
	prefix  string
}

// NewDatasetUploader creates an uploader writing under "datasets/".
func NewDatasetUploader(storage ObjectStorage) *DatasetUploader {
	return &DatasetUploader{storage: storage, prefix: "datasets"}
}

// Store uploads meta.Body under datasets/<uuid>/<file name>.
func (u *DatasetUploader) Store(ctx context.Context, meta domain.FileMeta) (domain.UploadReceipt, error) {
	if meta.Body == nil {
		return domain.UploadReceipt{}, errors.New("file has no content")
	}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	key := path.Join(u.prefix, uuid.NewString(), sanitizeName(meta.Name))
	if err := u.storage.Upload(ctx, key, meta.Body, meta.Size, contentType); err != nil {
		return domain.UploadReceipt{}, err
	}

	logger.With(logger.Fields{"key": key}).WithSize(meta.Size).Debug(ctx, "Dataset file stored")
	return domain.UploadReceipt{Name: meta.Name, Size: meta.Size, Key: key}, nil
}

// Remove deletes a file written by Store. A missing key is not an error.
func (u *DatasetUploader) Remove(ctx context.Context, key string) error {
	if err := u.storage.Delete(ctx, key); err != nil {
		return err
	}
	logger.With(logger.Fields{"key": key}).Debug(ctx, "Dataset file removed")
	return nil
}

// sanitizeName keeps the base name and replaces characters that are
// awkward in object keys.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, r == '?', r == '#', r == '%':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
