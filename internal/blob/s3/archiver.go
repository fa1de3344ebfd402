package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// multipartThreshold is the encoded size above which run summaries go through
// the multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// RunArchiver uploads each finished run summary as one JSON object under
// <prefix>/<kind>/<strategyHash>/<runId>.json.
type RunArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewRunArchiver creates a RunArchiver writing through w.
func NewRunArchiver(w domain.BlobWriter, prefix string) *RunArchiver {
	return &RunArchiver{writer: w, prefix: prefix}
}

// Key returns the object key for a run summary.
func (a *RunArchiver) Key(sum domain.RunSummary) string {
	kind := "unknown"
	if sum.State != nil && sum.State.Kind != "" {
		kind = sum.State.Kind
	}
	return path.Join(a.prefix, kind, sum.StrategyHash, sum.RunID+".json")
}

// RecordRun archives sum.
func (a *RunArchiver) RecordRun(ctx context.Context, sum domain.RunSummary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal run %s: %w", sum.RunID, err)
	}

	key := a.Key(sum)
	if mw, ok := a.writer.(multipartWriter); ok && len(data) > multipartThreshold {
		return mw.PutMultipart(ctx, key, bytes.NewReader(data), "application/json", minPartSize)
	}
	return a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
}
