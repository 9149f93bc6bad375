package nodeexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// HTTPRequestExecutor handles workflow.NodeHTTPRequest: outbound
// connectivity to an arbitrary external endpoint, with {{expr}} hydration
// applied to the URL and body. Ported from workflow_engine.py's
// "http_request" node_type. A non-2xx or network failure is reported in
// the output, not as a Go error, so a condition node downstream can branch
// on status_code.
type HTTPRequestExecutor struct {
	Client *http.Client
}

func (e HTTPRequestExecutor) Execute(ctx context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	rawURL, _ := node.Config["url"].(string)
	url := ctxdoc.Hydrate(rawURL, doc)
	if url == "" {
		return Result{Output: map[string]any{"error": "missing URL"}}, nil
	}

	method, _ := node.Config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	var bodyReader io.Reader
	if raw, ok := node.Config["body"]; ok && raw != nil {
		hydrated := ctxdoc.HydrateConfig(raw, doc)
		encoded, err := json.Marshal(hydrated)
		if err != nil {
			return Result{Output: map[string]any{"error": err.Error()}}, nil
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return Result{Output: map[string]any{"error": err.Error()}}, nil
	}
	if headers, ok := node.Config["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprint(v))
		}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Output: map[string]any{"error": err.Error()}}, nil
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Output: map[string]any{"error": err.Error()}}, nil
	}

	output := map[string]any{"status_code": resp.StatusCode}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed any
		if err := json.Unmarshal(respBytes, &parsed); err == nil {
			output["response_body"] = parsed
		} else {
			output["response_body"] = string(respBytes)
		}
	} else {
		output["response_body"] = string(respBytes)
	}

	return Result{Output: output}, nil
}
