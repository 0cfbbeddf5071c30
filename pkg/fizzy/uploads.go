package fizzy

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/afero"

)

// DirectUploadsPath registers blobs for direct upload.
const DirectUploadsPath = "/rails/active_storage/direct_uploads"

// ErrUploadFailed is returned when the storage service rejects the file.
var ErrUploadFailed = errors.New("direct upload failed")

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
}

// UploadsService attaches files to rich text. A file is registered with
// CreateDirectUpload, PUT to the returned storage URL, and then referenced
// by its signed ID through AttachmentTag.
type UploadsService struct {
	service

	// Fs is where UploadFile reads from
	Fs afero.Fs

	// MaxRetries bounds retries of the storage PUT (default 3)
	MaxRetries uint64
}

// BlobInput describes a file to register.
type BlobInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ByteSize    int64  `json:"byte_size"`
	Checksum    string `json:"checksum"`
}

// Validate checks the blob metadata.
func (in BlobInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Filename, validation.Required),
		validation.Field(&in.ContentType, validation.Required),
		validation.Field(&in.ByteSize, validation.Min(int64(0))),
		validation.Field(&in.Checksum, validation.Required, validation.Length(24, 24)),
	)
}

// Checksum returns the base64 MD5 digest storage services verify.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ContentTypeFor guesses a content type from the file extension.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// CreateDirectUpload registers a blob and returns where to upload it.
func (s *UploadsService) CreateDirectUpload(ctx context.Context, in BlobInput) (*DirectUpload, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return send[*DirectUpload](ctx, s.service, http.MethodPost, DirectUploadsPath, map[string]any{"blob": in})
}

// UploadBytes registers data under filename and uploads it. An empty
// contentType is guessed from the extension.
func (s *UploadsService) UploadBytes(ctx context.Context, data []byte, filename, contentType string) (*DirectUpload, error) {
	if contentType == "" {
		contentType = ContentTypeFor(filename)
	}

	upload, err := s.CreateDirectUpload(ctx, BlobInput{
		Filename:    filename,
		ContentType: contentType,
		ByteSize:    int64(len(data)),
		Checksum:    Checksum(data),
	})
	if err != nil {
		return nil, fmt.Errorf("create direct upload: %w", err)
	}

	if err := s.put(ctx, upload, data); err != nil {
		return nil, err
	}
	return upload, nil
}

// UploadFile reads path from Fs and uploads it under its base name.
func (s *UploadsService) UploadFile(ctx context.Context, path, contentType string) (*DirectUpload, error) {
	fs := s.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.UploadBytes(ctx, data, filepath.Base(path), contentType)
}

// put sends the bytes to storage. Network errors and 5xx are retried with
// exponential backoff; other failures are permanent.
func (s *UploadsService) put(ctx context.Context, upload *DirectUpload, data []byte) error {
	target := upload.DirectUpload
	if target.URL == "" {
		return fmt.Errorf("%w: no upload url for %s", ErrUploadFailed, upload.Filename)
	}

	retries := s.MaxRetries
	if retries == 0 {
		retries = 3
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = time.Minute

	logger := s.client.Logger()
	op := func() error {
		resp, err := s.client.Transport().PutExternal(ctx, target.URL, target.Headers, data)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		err = fmt.Errorf("%w: %s returned %d", ErrUploadFailed, upload.Filename, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("filename", upload.Filename).Dur("backoff", wait).Msg("Retrying direct upload")
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify)
}
