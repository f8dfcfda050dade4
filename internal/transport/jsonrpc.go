package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// HeaderSessionID carries the session id of the streamable binding.
const HeaderSessionID = "Mcp-Session-Id"

// JSON-RPC error codes written by the HTTP layer.
const (
	CodeParseError      = mcp.PARSE_ERROR
	CodeInvalidRequest  = mcp.INVALID_REQUEST
	CodeInternalError   = mcp.INTERNAL_ERROR
	CodeServerError     = -32000
	CodeSessionNotFound = -32001
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	JSONRPC string     `json:"jsonrpc"`
	Error   *errorBody `json:"error"`
	ID      any        `json:"id"`
}

// WriteError writes a JSON-RPC error envelope with a null id.
func WriteError(w http.ResponseWriter, status, code int, message string) {
	data, _ := json.Marshal(errorEnvelope{
		JSONRPC: mcp.JSONRPC_VERSION,
		Error:   &errorBody{Code: code, Message: message},
		ID:      nil,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type initializeProbe struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
	Params  json.RawMessage `json:"params"`
}

type initializeParams struct {
	ProtocolVersion *string                    `json:"protocolVersion"`
	Capabilities    map[string]json.RawMessage `json:"capabilities"`
	ClientInfo      *struct {
		Name    *string `json:"name"`
		Version *string `json:"version"`
	} `json:"clientInfo"`
}

// IsInitializeRequest reports whether body is a single, well-formed
// initialize request: JSON-RPC 2.0, method "initialize", a non-null id, a
// string protocolVersion, an object of capabilities and a clientInfo with
// string name and version.
func IsInitializeRequest(body []byte) bool {
	var probe initializeProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	if probe.JSONRPC != mcp.JSONRPC_VERSION || probe.Method != string(mcp.MethodInitialize) {
		return false
	}
	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		return false
	}

	var params initializeParams
	if err := json.Unmarshal(probe.Params, &params); err != nil {
		return false
	}
	if params.ProtocolVersion == nil || *params.ProtocolVersion == "" {
		return false
	}
	if params.Capabilities == nil {
		return false
	}
	return params.ClientInfo != nil && params.ClientInfo.Name != nil && params.ClientInfo.Version != nil
}

// isErrorResponse reports whether data is a JSON-RPC error response.
func isErrorResponse(data []byte) bool {
	var msg struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return false
	}
	return len(msg.Error) > 0 && string(msg.Error) != "null"
}

func writeEvent(w io.Writer, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func setEventStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
