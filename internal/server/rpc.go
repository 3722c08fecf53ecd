package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/deskagent/internal/executor"
	"github.com/haasonsaas/deskagent/internal/tools"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
)

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// callParams is the payload of a tools/call request.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// handleRPC serves the tools/list and tools/call methods.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: rpcParseError, Message: "parse error: " + err.Error()},
		})
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: rpcInvalidRequest, Message: `jsonrpc must be "2.0"`},
		})
		return
	}

	switch req.Method {
	case "tools/list":
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Result: map[string]any{"tools": tools.Catalog()},
		})

	case "tools/call":
		var params callParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0", ID: req.ID,
				Error: &rpcError{Code: rpcInvalidParams, Message: "params must carry a tool name and arguments"},
			})
			return
		}
		if params.Arguments == nil {
			params.Arguments = map[string]any{}
		}
		if err := s.validateParams(params.Name, params.Arguments); err != nil {
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0", ID: req.ID,
				Error: &rpcError{Code: rpcInvalidParams, Message: err.Error()},
			})
			return
		}

		result, err := s.invoker.Execute(r.Context(), params.Name, params.Arguments)
		if err != nil {
			code := rpcInternalError
			if errors.Is(err, executor.ErrUnknownTool) {
				code = rpcMethodNotFound
			}
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0", ID: req.ID,
				Error: &rpcError{Code: code, Message: err.Error()},
			})
			return
		}
		s.hub.publish(invocationEvent{Tool: params.Name, Result: result})
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})

	default:
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: rpcMethodNotFound, Message: "method not found: " + req.Method},
		})
	}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	writeJSON(w, http.StatusOK, resp)
}
