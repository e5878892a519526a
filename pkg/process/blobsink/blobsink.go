// Package blobsink provides a terminal producer that persists every item it
// receives to blob storage and emits nothing. It is the side-effect result
// capture pattern: the engine returns no aggregate outputs, so a pipeline
// that wants durable results routes its terminal branch here.
package blobsink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wehubfusion/Daedalus/pkg/producer"
	"github.com/wehubfusion/Daedalus/pkg/storage"
	"go.uber.org/zap"
)

// Sink uploads each received item as its own blob.
type Sink struct {
	client storage.BlobStorageClient
	prefix string
	logger *zap.Logger
	seq    atomic.Int64
}

// New creates a Sink writing blobs under the given path prefix.
func New(client storage.BlobStorageClient, prefix string, logger *zap.Logger) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("blob storage client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{client: client, prefix: prefix, logger: logger}, nil
}

// Produce uploads the item and emits no tuples. String and []byte items are
// stored as-is; anything else is JSON-encoded.
func (s *Sink) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	if item == nil {
		return nil
	}

	data, err := encode(item)
	if err != nil {
		return fmt.Errorf("failed to encode item for storage: %w", err)
	}

	seq := s.seq.Add(1)
	blobPath := fmt.Sprintf("%s/%s-%06d", s.prefix, uuid.NewString(), seq)
	metadata := map[string]string{
		"stored_at": time.Now().UTC().Format(time.RFC3339),
		"item_type": fmt.Sprintf("%T", item),
	}

	url, err := s.client.UploadItem(ctx, blobPath, data, metadata)
	if err != nil {
		return err
	}

	s.logger.Debug("Item persisted",
		zap.String("blob_path", blobPath),
		zap.String("blob_url", url),
		zap.Int("size_bytes", len(data)))
	return nil
}

// Stored returns how many items the sink has uploaded.
func (s *Sink) Stored() int64 {
	return s.seq.Load()
}

func encode(item any) ([]byte, error) {
	switch v := item.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
