package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostOf(t *testing.T) {
	assert.Equal(t, "localhost:9000", hostOf("http://localhost:9000"))
	assert.Equal(t, "minio:9000", hostOf("minio:9000"))
}

func TestNewExportStore_Validates(t *testing.T) {
	_, err := NewExportStore(Options{Bucket: "exports"})
	assert.Error(t, err)
	_, err = NewExportStore(Options{Endpoint: "http://localhost:9000"})
	assert.Error(t, err)

	store, err := NewExportStore(Options{Endpoint: "http://localhost:9000", Bucket: "exports", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "exports", store.bucket)
}
