// Package cloudstore is the reference adapter for the cloud.* and
// model.download action kinds. It fronts pkg/artifacts' content-addressed
// blob store with a bucket/key (for cloud.*) or model-id (for model.*)
// index, the way a real S3/GCS-backed implementation would front its
// object store with a path namespace.
package cloudstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quietcore/gateway/pkg/adapter/reference/webfetch"
	"github.com/quietcore/gateway/pkg/artifacts"
	"github.com/quietcore/gateway/pkg/protocol"
)

// maxDownloadBytes bounds how much of a model download this reference
// adapter will buffer before persisting it.
const maxDownloadBytes = 64 << 20 // 64 MiB

// Adapter implements registry.Adapter for cloud.save/load/delete/list and
// model.download/list/delete/get_info.
type Adapter struct {
	blobs  artifacts.Store
	client *webfetch.EnhancedClient

	mu      sync.RWMutex
	buckets map[string]map[string]string // bucket -> key -> content hash
	models  map[string]modelRecord       // modelId -> record
}

type modelRecord struct {
	ContentRef   string
	SourceHost   string
	SizeBytes    int
	DownloadedAt time.Time
}

// New builds a cloudstore Adapter backed by blobs for content storage.
func New(blobs artifacts.Store) *Adapter {
	return &Adapter{
		blobs:   blobs,
		client:  webfetch.NewEnhancedClient(),
		buckets: make(map[string]map[string]string),
		models:  make(map[string]modelRecord),
	}
}

func (a *Adapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	switch req.Action {
	case "cloud.save":
		return a.save(ctx, req)
	case "cloud.load":
		return a.load(ctx, req)
	case "cloud.delete":
		return a.deleteKey(req)
	case "cloud.list":
		return a.list(req)
	case "model.download":
		return a.downloadModel(ctx, req)
	case "model.list":
		return a.listModels()
	case "model.delete":
		return a.deleteModel(req)
	case "model.get_info":
		return a.modelInfo(req)
	default:
		return nil, fmt.Errorf("cloudstore: %s is not implemented by the reference adapter", req.Action)
	}
}

func (a *Adapter) save(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	bucket, key, contentRef := strField(req, "bucket"), strField(req, "key"), strField(req, "contentRef")
	exists, err := a.blobs.Exists(ctx, contentRef)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: check contentRef: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("cloudstore: contentRef %q has no matching artifact", contentRef)
	}

	a.mu.Lock()
	if a.buckets[bucket] == nil {
		a.buckets[bucket] = make(map[string]string)
	}
	a.buckets[bucket][key] = contentRef
	a.mu.Unlock()

	return map[string]interface{}{"bucket": bucket, "key": key, "contentRef": contentRef}, nil
}

func (a *Adapter) load(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	bucket, key := strField(req, "bucket"), strField(req, "key")

	a.mu.RLock()
	contentRef, ok := a.buckets[bucket][key]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cloudstore: no object at %s/%s", bucket, key)
	}

	data, err := a.blobs.Get(ctx, contentRef)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: load blob: %w", err)
	}
	return map[string]interface{}{"bucket": bucket, "key": key, "contentRef": contentRef, "sizeBytes": len(data)}, nil
}

func (a *Adapter) deleteKey(req protocol.ActionRequest) (interface{}, error) {
	bucket, key := strField(req, "bucket"), strField(req, "key")

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.buckets[bucket] == nil {
		return nil, fmt.Errorf("cloudstore: no object at %s/%s", bucket, key)
	}
	delete(a.buckets[bucket], key)
	return map[string]interface{}{"bucket": bucket, "key": key, "deleted": true}, nil
}

func (a *Adapter) list(req protocol.ActionRequest) (interface{}, error) {
	bucket, prefix := strField(req, "bucket"), strField(req, "prefix")

	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.buckets[bucket]))
	for k := range a.buckets[bucket] {
		if prefix == "" || hasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return map[string]interface{}{"bucket": bucket, "keys": keys}, nil
}

func (a *Adapter) downloadModel(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	modelID, sourceHost := strField(req, "modelId"), strField(req, "sourceHost")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, modelURL(sourceHost, modelID), nil)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: build model download request: %w", err)
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: download model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("cloudstore: read model body: %w", err)
	}

	contentRef, err := a.blobs.Store(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: persist model: %w", err)
	}

	rec := modelRecord{ContentRef: contentRef, SourceHost: sourceHost, SizeBytes: len(data), DownloadedAt: time.Now().UTC()}
	a.mu.Lock()
	a.models[modelID] = rec
	a.mu.Unlock()

	return map[string]interface{}{"modelId": modelID, "contentRef": contentRef, "sizeBytes": len(data)}, nil
}

func (a *Adapter) listModels() (interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.models))
	for id := range a.models {
		ids = append(ids, id)
	}
	return map[string]interface{}{"modelIds": ids}, nil
}

func (a *Adapter) deleteModel(req protocol.ActionRequest) (interface{}, error) {
	modelID := strField(req, "modelId")
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.models[modelID]; !ok {
		return nil, fmt.Errorf("cloudstore: unknown model %q", modelID)
	}
	delete(a.models, modelID)
	return map[string]interface{}{"modelId": modelID, "deleted": true}, nil
}

func (a *Adapter) modelInfo(req protocol.ActionRequest) (interface{}, error) {
	modelID := strField(req, "modelId")
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.models[modelID]
	if !ok {
		return nil, fmt.Errorf("cloudstore: unknown model %q", modelID)
	}
	return map[string]interface{}{
		"modelId": modelID, "contentRef": rec.ContentRef, "sourceHost": rec.SourceHost,
		"sizeBytes": rec.SizeBytes, "downloadedAt": rec.DownloadedAt,
	}, nil
}

// modelURL builds the download URL for a model host. sourceHost is
// usually a bare host ("models.example.com") and defaults to https;
// it may also carry its own scheme, which lets a profile point
// model.download at a private mirror without TLS.
func modelURL(sourceHost, modelID string) string {
	if strings.Contains(sourceHost, "://") {
		return sourceHost + "/models/" + modelID
	}
	return "https://" + sourceHost + "/models/" + modelID
}

func strField(req protocol.ActionRequest, key string) string {
	s, _ := req.Payload[key].(string)
	return s
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
