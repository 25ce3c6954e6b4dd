package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/app/observability/metrics"
)

// Source is one uploaded file waiting to be normalized and stored.
type Source struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Processor turns uploaded files into public image URLs.
type Processor interface {
	ProcessAll(ctx context.Context, sources []Source) []models.UploadResult
}

var _ Processor = (*Pipeline)(nil)

// Pipeline normalizes and uploads files one by one. A failing file is reported in
// its own result and never stops the others.
type Pipeline struct {
	logger     *zap.Logger
	normalizer *Normalizer
	uploader   Uploader
	now        func() time.Time
}

func NewPipeline(normalizer *Normalizer, uploader Uploader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	return &Pipeline{logger: logger, normalizer: normalizer, uploader: uploader, now: time.Now}
}

func (p *Pipeline) ProcessAll(ctx context.Context, sources []Source) []models.UploadResult {
	results := make([]models.UploadResult, 0, len(sources))
	for _, src := range sources {
		res := models.UploadResult{Filename: src.Filename}
		url, err := p.process(ctx, src)
		status := "ok"
		if err != nil {
			status = "failed"
			res.Error = err.Error()
			p.logger.Warn("Image upload failed", zap.String("filename", src.Filename), zap.Error(err))
		} else {
			res.URL = url
		}
		metrics.Get().ImageUploadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
		results = append(results, res)
	}
	return results
}

func (p *Pipeline) process(ctx context.Context, src Source) (string, error) {
	if p.uploader == nil {
		return "", ErrStorageDisabled
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src.Filename, err)
	}
	defer rc.Close()

	data, err := p.normalizer.Normalize(rc)
	if err != nil {
		return "", err
	}

	name := ObjectName(p.now(), src.Filename)
	url, err := p.uploader.Upload(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return url, nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName is the storage key for an upload: timestamp, short random id and
// the sanitized original name with a .jpg extension.
func ObjectName(at time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "photo"
	}
	return fmt.Sprintf("%s_%s_%s.jpg", at.Format("20060102150405"), uuid.NewString()[:8], base)
}
