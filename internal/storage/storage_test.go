package storage

import (
	"testing"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	at := time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	key := ReportKey("/distribution/", 42, at, "abc", ".csv")
	assert.Equal(t, "distribution/42/2025/03/07/abc.csv", key)
	assert.Equal(t, "distribution/42/", TenantPrefix("distribution", 42))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}

	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.in, tt.useSSL)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestNewMinioClientValidation(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "minio:9000"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	client, err := NewMinioClient(config.StorageConfig{
		Endpoint: "http://minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "reports",
	})
	require.NoError(t, err)
	assert.Equal(t, "reports", client.bucket)
	assert.Equal(t, "us-east-1", client.region)
}
