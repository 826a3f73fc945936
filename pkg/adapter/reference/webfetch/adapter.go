package webfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quietcore/gateway/pkg/protocol"
)

// maxBodyBytes bounds how much of a response this reference adapter will
// buffer into the response payload.
const maxBodyBytes = 2 << 20 // 2 MiB

// Adapter implements registry.Adapter for web.fetch. It is a reference
// implementation: web.screenshot and web.download_file are out of scope
// for a demo HTTP client (they need a browser engine and a streaming
// destination respectively) and return ADAPTER_ERROR.
type Adapter struct {
	client *EnhancedClient
}

// New builds a webfetch Adapter with the default resiliency policy.
func New() *Adapter {
	return &Adapter{client: NewEnhancedClient()}
}

func (a *Adapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	switch req.Action {
	case "web.fetch":
		return a.fetch(ctx, req)
	default:
		return nil, fmt.Errorf("webfetch: %s is not implemented by the reference adapter", req.Action)
	}
}

func (a *Adapter) fetch(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	url, _ := req.Payload["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("webfetch: payload.url is required")
	}
	method, _ := req.Payload["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if b, ok := req.Payload["body"].(string); ok && b != "" {
		body = strings.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("webfetch: build request: %w", err)
	}
	if headers, ok := req.Payload["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				httpReq.Header.Set(k, s)
			}
		}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webfetch: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBodyBytes)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("webfetch: read response body: %w", err)
	}

	return map[string]interface{}{
		"statusCode": resp.StatusCode,
		"headers":    flattenHeader(resp.Header),
		"body":       string(data),
	}, nil
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
