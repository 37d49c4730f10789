package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the minimal S3-compatible operations the report
// writer needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// ReportKey lays reports out as <kind>/<tenant>/<yyyy>/<mm>/<dd>/<id>.<ext>.
func ReportKey(kind string, tenantID int64, at time.Time, id, ext string) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%d/%04d/%02d/%02d/%s.%s",
		strings.Trim(kind, "/"), tenantID, at.Year(), int(at.Month()), at.Day(), id, strings.TrimPrefix(ext, "."))
}

// TenantPrefix is the listing prefix for one tenant's reports of a kind.
func TenantPrefix(kind string, tenantID int64) string {
	return fmt.Sprintf("%s/%d/", strings.Trim(kind, "/"), tenantID)
}
