package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wehubfusion/Daedalus/pkg/process/blobsink"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// mockBlobClient implements storage.BlobStorageClient for testing
type mockBlobClient struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	uploadErr error
}

func newMockBlobClient() *mockBlobClient {
	return &mockBlobClient{uploads: make(map[string][]byte)}
}

func (m *mockBlobClient) UploadItem(ctx context.Context, blobPath string, data []byte, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads[blobPath] = data
	return "https://storage.local/" + blobPath, nil
}

func (m *mockBlobClient) DownloadItem(ctx context.Context, blobURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := strings.TrimPrefix(blobURL, "https://storage.local/")
	data, ok := m.uploads[path]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func (m *mockBlobClient) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func noEmit(t *testing.T) producer.EmitFunc {
	return func(tuple producer.Tuple) error {
		t.Fatal("a terminal sink must not emit tuples")
		return nil
	}
}

func TestSinkUploadsStringItems(t *testing.T) {
	client := newMockBlobClient()
	sink, err := blobsink.New(client, "runs/test", createTestLogger())
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := sink.Produce(context.Background(), "hello", noEmit(t)); err != nil {
		t.Fatalf("produce failed: %v", err)
	}

	if client.count() != 1 {
		t.Fatalf("expected 1 upload, got %d", client.count())
	}
	for path, data := range client.uploads {
		if !strings.HasPrefix(path, "runs/test/") {
			t.Fatalf("blob path %q missing prefix", path)
		}
		if string(data) != "hello" {
			t.Fatalf("expected raw string payload, got %q", data)
		}
	}
	if sink.Stored() != 1 {
		t.Fatalf("expected Stored()=1, got %d", sink.Stored())
	}
}

func TestSinkEncodesStructuredItemsAsJSON(t *testing.T) {
	client := newMockBlobClient()
	sink, err := blobsink.New(client, "runs/test", createTestLogger())
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	item := map[string]int{"value": 7}
	if err := sink.Produce(context.Background(), item, noEmit(t)); err != nil {
		t.Fatalf("produce failed: %v", err)
	}

	for _, data := range client.uploads {
		if string(data) != `{"value":7}` {
			t.Fatalf("expected JSON payload, got %q", data)
		}
	}
}

func TestSinkIgnoresNilItems(t *testing.T) {
	client := newMockBlobClient()
	sink, err := blobsink.New(client, "runs/test", createTestLogger())
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := sink.Produce(context.Background(), nil, noEmit(t)); err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if client.count() != 0 {
		t.Fatalf("nil items must not be uploaded, got %d uploads", client.count())
	}
}

func TestSinkSurfacesUploadErrors(t *testing.T) {
	client := newMockBlobClient()
	client.uploadErr = errors.New("storage unavailable")
	sink, err := blobsink.New(client, "runs/test", createTestLogger())
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}

	if err := sink.Produce(context.Background(), "x", noEmit(t)); err == nil {
		t.Fatal("expected the upload error to surface")
	}
}

func TestSinkRequiresClient(t *testing.T) {
	if _, err := blobsink.New(nil, "runs/test", createTestLogger()); err == nil {
		t.Fatal("expected error for nil client")
	}
}
