package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/deskagent/internal/config"
	"github.com/haasonsaas/deskagent/internal/executor"
	"github.com/haasonsaas/deskagent/internal/observability"
)

// stubInvoker records calls and returns a canned result.
type stubInvoker struct {
	lastTool   string
	lastParams map[string]any
	result     map[string]any
	err        error
}

func (s *stubInvoker) Execute(_ context.Context, toolName string, params map[string]any) (map[string]any, error) {
	s.lastTool = toolName
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return map[string]any{"success": true, "message": "ok"}, nil
}

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *stubInvoker) {
	t.Helper()
	invoker := &stubInvoker{}
	opts := Options{
		Config:  config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Invoker: invoker,
		Logger:  slog.New(slog.DiscardHandler),
		Backend: "noop",
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, invoker
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["backend"] != "noop" {
		t.Errorf("body = %v", body)
	}
}

func TestToolsListing(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))

	body := decodeBody(t, rec)
	list, _ := body["tools"].([]any)
	if len(list) != 19 {
		t.Fatalf("catalog size = %d, want 19", len(list))
	}
	first, _ := list[0].(map[string]any)
	if first["name"] == "" || first["input_schema"] == nil {
		t.Errorf("tool entry incomplete: %v", first)
	}
}

func TestInvoke(t *testing.T) {
	srv, invoker := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/invoke", map[string]any{
		"tool":   "launch_app",
		"params": map[string]any{"target": "firefox"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if invoker.lastTool != "launch_app" {
		t.Errorf("dispatched %q", invoker.lastTool)
	}
	if invoker.lastParams["target"] != "firefox" {
		t.Errorf("params = %v", invoker.lastParams)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestInvokeSchemaValidation(t *testing.T) {
	srv, invoker := newTestServer(t, nil)

	// launch_app requires target.
	rec := postJSON(t, srv.Handler(), "/invoke", map[string]any{
		"tool":   "launch_app",
		"params": map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if invoker.lastTool != "" {
		t.Error("invalid request reached the invoker")
	}
}

func TestInvokeNotificationKeywordAccepted(t *testing.T) {
	srv, invoker := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/invoke", map[string]any{
		"tool":   "check_notification",
		"params": map[string]any{"keyword": "build", "timeout": 1},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if invoker.lastTool != "check_notification" {
		t.Errorf("invoker saw %q", invoker.lastTool)
	}
	if invoker.lastParams["keyword"] != "build" {
		t.Errorf("keyword was not forwarded: %v", invoker.lastParams)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	srv, invoker := newTestServer(t, nil)
	invoker.err = fmt.Errorf("%w: teleport", executor.ErrUnknownTool)

	rec := postJSON(t, srv.Handler(), "/invoke", map[string]any{
		"tool": "teleport",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInvokeRequiresTool(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/invoke", map[string]any{
		"params": map[string]any{"target": "firefox"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRPCToolsList(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/rpc", map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tools/list",
	})
	body := decodeBody(t, rec)
	if body["error"] != nil {
		t.Fatalf("error = %v", body["error"])
	}
	result, _ := body["result"].(map[string]any)
	list, _ := result["tools"].([]any)
	if len(list) != 19 {
		t.Errorf("tools = %d, want 19", len(list))
	}
}

func TestRPCToolsCall(t *testing.T) {
	srv, invoker := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/rpc", map[string]any{
		"jsonrpc": "2.0", "id": "a1", "method": "tools/call",
		"params": map[string]any{
			"name":      "screenshot",
			"arguments": map[string]any{},
		},
	})
	body := decodeBody(t, rec)
	if body["error"] != nil {
		t.Fatalf("error = %v", body["error"])
	}
	if body["id"] != "a1" {
		t.Errorf("id = %v", body["id"])
	}
	if invoker.lastTool != "screenshot" {
		t.Errorf("dispatched %q", invoker.lastTool)
	}
}

func TestRPCMethodNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/rpc", map[string]any{
		"jsonrpc": "2.0", "id": 7, "method": "resources/list",
	})
	body := decodeBody(t, rec)
	rpcErr, _ := body["error"].(map[string]any)
	if rpcErr == nil || rpcErr["code"] != float64(rpcMethodNotFound) {
		t.Errorf("error = %v, want code %d", body["error"], rpcMethodNotFound)
	}
}

func TestRPCInvalidParams(t *testing.T) {
	srv, invoker := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/rpc", map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		"params": map[string]any{
			"name":      "focus_window",
			"arguments": map[string]any{},
		},
	})
	body := decodeBody(t, rec)
	rpcErr, _ := body["error"].(map[string]any)
	if rpcErr == nil || rpcErr["code"] != float64(rpcInvalidParams) {
		t.Errorf("error = %v, want code %d", body["error"], rpcInvalidParams)
	}
	if invoker.lastTool != "" {
		t.Error("invalid call reached the invoker")
	}
}

func TestRPCRejectsWrongVersion(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postJSON(t, srv.Handler(), "/rpc", map[string]any{
		"jsonrpc": "1.0", "id": 3, "method": "tools/list",
	})
	body := decodeBody(t, rec)
	rpcErr, _ := body["error"].(map[string]any)
	if rpcErr == nil || rpcErr["code"] != float64(rpcInvalidRequest) {
		t.Errorf("error = %v", body["error"])
	}
}

func TestAuthToken(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.Config.AuthToken = "sesame"
	})
	handler := srv.Handler()

	// Missing token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rec.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/tools", nil)
	req.Header.Set("Authorization", "Bearer sesame")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d", rec.Code)
	}

	// Health stays open for probes.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request ID assigned")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-keep")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-keep" {
		t.Errorf("request ID = %q, want req-keep", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.Metrics = observability.NewMetrics()
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSSEStreamsInvocations(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect SSE: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	// First frame is the connected comment.
	line, err := reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ":") {
		t.Fatalf("greeting = %q, err = %v", line, err)
	}

	// Trigger an invocation and expect it on the stream.
	go func() {
		// Give the subscription a moment to register.
		time.Sleep(50 * time.Millisecond)
		body := strings.NewReader(`{"tool":"screenshot","params":{}}`)
		resp, err := http.Post(ts.URL+"/invoke", "application/json", body)
		if err == nil {
			resp.Body.Close()
		}
	}()

	deadline := time.Now().Add(4 * time.Second)
	var data string
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}
	if data == "" {
		t.Fatal("no event received")
	}
	var event map[string]any
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	if event["tool"] != "screenshot" {
		t.Errorf("event = %v", event)
	}
}
