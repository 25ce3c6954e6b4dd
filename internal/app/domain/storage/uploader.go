package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// ErrStorageDisabled is returned when no object storage credentials are configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// Uploader stores one encoded image under name and returns its public HTTPS URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type CloudinaryUploader struct {
	uploader *uploader.API
	folder   string
}

// NewCloudinaryUploader builds an Uploader from Cloudinary cloud name, API key, and secret.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, fmt.Errorf("cloudinary uploader: %w", err)
	}
	return &CloudinaryUploader{uploader: up, folder: folder}, nil
}

func (c *CloudinaryUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	overwrite := false
	result, err := c.uploader.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     strings.TrimSuffix(name, path.Ext(name)),
		ResourceType: "image",
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", errors.New(result.Error.Message)
	}
	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return "", fmt.Errorf("upload of %s returned no url", name)
	}
	return ForceHTTPS(url), nil
}

// ForceHTTPS rewrites plain http URLs returned by storage providers.
func ForceHTTPS(url string) string {
	if strings.HasPrefix(url, "http://") {
		return "https://" + strings.TrimPrefix(url, "http://")
	}
	return url
}
